package config

import (
	"strings"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	APIPrefix   string `env:"API_PREFIX,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	AdminAPIKey   string `env:"ADMIN_API_KEY"`
	SessionSecret string `env:"SESSION_SECRET"`

	BackendTimeoutMS     int `env:"BACKEND_TIMEOUT_MS" envDefault:"15000"`
	BackendBreakerTrips  int `env:"BACKEND_BREAKER_TRIPS" envDefault:"5"`
	BackendBreakerOpenMS int `env:"BACKEND_BREAKER_OPEN_MS" envDefault:"30000"`

	CookieSecure     bool     `env:"COOKIE_SECURE" envDefault:"false"`
	CookieMaxAgeMins int      `env:"COOKIE_MAX_AGE_MINUTES" envDefault:"1440"`
	CORSOrigins      []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	LoginPerMinute int `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`
	LoginBurst     int `env:"LOGIN_RATE_BURST" envDefault:"5"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	cfg.APIPrefix = strings.TrimRight(strings.TrimSpace(cfg.APIPrefix), "/")
	return cfg, nil
}
