package arena

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"analyst-alchemist/internal/backend"
	"analyst-alchemist/internal/config"
	"analyst-alchemist/internal/market"
	"analyst-alchemist/internal/store"
)

func testMarketConfig() config.MarketConfig {
	return config.MarketConfig{
		TickIntervalMS:   int(time.Hour.Milliseconds()),
		HistoryCap:       60,
		SeedPoints:       50,
		SeedSpacingMins:  5,
		BotVolatility:    2.5,
		UserVolatility:   3.5,
		NotifyChance:     0,
		SessionIdleMins:  30,
		BacktestMS:       20,
		NotificationTTLS: 5,
	}
}

func newTestManager(t *testing.T, cfg config.MarketConfig, repo store.Repository) *Manager {
	t.Helper()
	m := NewManager(cfg, repo, WithSource(func() market.Source { return rand.New(rand.NewSource(3)) }))
	t.Cleanup(m.Shutdown)
	return m
}

type fakeJoiner struct {
	calls int
	token string
	err   error
}

func (f *fakeJoiner) JoinCurrentActivity(_ context.Context, token string) (backend.Activity, error) {
	f.calls++
	f.token = token
	if f.err != nil {
		return backend.Activity{}, f.err
	}
	return backend.Activity{ID: "12", Status: backend.ActivityRunning, Name: "Season 3"}, nil
}
