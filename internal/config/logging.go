package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
)

// LogConfig selects the zerolog level and format plus an optional
// size-capped log file shared with the request logger.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY"`
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
}

var logLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

// LoadLog reads LOG_* and rejects values the logger would otherwise
// silently ignore.
func LoadLog() (LogConfig, error) {
	cfg, err := env.ParseAs[LogConfig]()
	if err != nil {
		return cfg, err
	}
	cfg.Level = strings.ToLower(strings.TrimSpace(cfg.Level))
	cfg.File = strings.TrimSpace(cfg.File)
	switch {
	case !slices.Contains(logLevels, cfg.Level):
		return cfg, fmt.Errorf("LOG_LEVEL %q: want one of %s", cfg.Level, strings.Join(logLevels, ", "))
	case cfg.SampleEvery < 0:
		return cfg, fmt.Errorf("LOG_SAMPLE_EVERY must not be negative, got %d", cfg.SampleEvery)
	case cfg.File != "" && cfg.MaxMB < 1:
		return cfg, fmt.Errorf("LOG_MAX_MB must be at least 1 when LOG_FILE is set, got %d", cfg.MaxMB)
	}
	return cfg, nil
}
