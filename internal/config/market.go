package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// MarketConfig tunes the simulated leaderboard of every dashboard session.
type MarketConfig struct {
	TickIntervalMS   int     `env:"MARKET_TICK_INTERVAL_MS" envDefault:"2000"`
	HistoryCap       int     `env:"MARKET_HISTORY_CAP" envDefault:"60"`
	SeedPoints       int     `env:"MARKET_SEED_POINTS" envDefault:"50"`
	SeedSpacingMins  int     `env:"MARKET_SEED_SPACING_MINUTES" envDefault:"5"`
	BotVolatility    float64 `env:"MARKET_BOT_VOLATILITY" envDefault:"2.5"`
	UserVolatility   float64 `env:"MARKET_USER_VOLATILITY" envDefault:"3.5"`
	NotifyChance     float64 `env:"MARKET_NOTIFY_CHANCE" envDefault:"0.04"`
	SessionIdleMins  int     `env:"MARKET_SESSION_IDLE_MINUTES" envDefault:"30"`
	BacktestMS       int     `env:"WIZARD_BACKTEST_MS" envDefault:"2500"`
	NotificationTTLS int     `env:"NOTIFICATION_TTL_SECONDS" envDefault:"5"`
}

func LoadMarket() (MarketConfig, error) {
	var cfg MarketConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func (c MarketConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

func (c MarketConfig) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMins) * time.Minute
}

func (c MarketConfig) Backtest() time.Duration {
	return time.Duration(c.BacktestMS) * time.Millisecond
}

func (c MarketConfig) NotificationTTL() time.Duration {
	return time.Duration(c.NotificationTTLS) * time.Second
}
