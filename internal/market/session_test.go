package market

import (
	"errors"
	"testing"
	"time"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(DefaultConfig(), newRand(99), at0935)
}

func userCount(roster []Entry) int {
	n := 0
	for _, e := range roster {
		if e.IsUser {
			n++
		}
	}
	return n
}

func TestNewSessionSeedsStarterRoster(t *testing.T) {
	s := newTestSession(t)
	snap := s.Snapshot()
	if len(snap.Roster) != 10 {
		t.Fatalf("roster len = %d, want 10", len(snap.Roster))
	}
	if len(snap.History) != DefaultSeedPoints {
		t.Fatalf("history len = %d, want %d", len(snap.History), DefaultSeedPoints)
	}
	latest := snap.History[len(snap.History)-1]
	for i, e := range snap.Roster {
		if e.Rank != i+1 {
			t.Fatalf("rank at %d = %d", i, e.Rank)
		}
		if want := round2(latest.Values[e.Name] - BaseValue); e.RawProfit != want {
			t.Fatalf("%s raw profit = %v, want %v", e.Name, e.RawProfit, want)
		}
	}
}

func TestSessionTickRanksFromNewPoint(t *testing.T) {
	s := newTestSession(t)
	res := s.Tick(at0935.Add(2 * time.Second))

	hist := s.History(0)
	if len(hist) != DefaultSeedPoints+1 {
		t.Fatalf("history len = %d, want %d", len(hist), DefaultSeedPoints+1)
	}
	for _, e := range res.Roster {
		if want := round2(res.Point.Values[e.Name] - BaseValue); e.RawProfit != want {
			t.Fatalf("%s ranked from stale point: %v vs %v", e.Name, e.RawProfit, want)
		}
	}
	for i := 0; i < 30; i++ {
		s.Tick(at0935.Add(time.Duration(i+2) * 2 * time.Second))
	}
	if got := len(s.History(0)); got != DefaultHistoryCap {
		t.Fatalf("history len after many ticks = %d, want %d", got, DefaultHistoryCap)
	}
	if got := len(s.History(5)); got != 5 {
		t.Fatalf("History(5) len = %d", got)
	}
}

func TestSessionHighlightChance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NotifyChance = 1
	s := NewSession(cfg, newRand(5), at0935)
	if res := s.Tick(at0935.Add(time.Minute)); res.Highlight == nil || res.Highlight.Message == "" {
		t.Fatalf("expected highlight with chance 1, got %+v", res.Highlight)
	}

	cfg.NotifyChance = 0
	s = NewSession(cfg, newRand(5), at0935)
	for i := 0; i < 50; i++ {
		if res := s.Tick(at0935.Add(time.Duration(i) * time.Second)); res.Highlight != nil {
			t.Fatalf("unexpected highlight with chance 0: %+v", res.Highlight)
		}
	}
}

func TestSessionJoin(t *testing.T) {
	s := newTestSession(t)
	before := s.History(0)

	entry, err := s.Join("42", "Alchemist-7", "Momentum Hunter")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !entry.IsUser || entry.RawProfit != 0 || entry.Profit != "+0.0%" {
		t.Fatalf("unexpected user entry: %+v", entry)
	}
	roster := s.Roster()
	if len(roster) != 11 || userCount(roster) != 1 {
		t.Fatalf("roster len=%d users=%d", len(roster), userCount(roster))
	}
	hist := s.History(0)
	if v, ok := hist[len(hist)-1].Value("Alchemist-7"); !ok || v != BaseValue {
		t.Fatalf("latest point user value = %v, %v", v, ok)
	}
	if _, ok := before[len(before)-1].Value("Alchemist-7"); ok {
		t.Fatal("join mutated a previously returned point")
	}

	if _, err := s.Join("43", "Another", "x"); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("second join err = %v, want ErrAlreadyJoined", err)
	}
}

func TestSessionJoinValidation(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Join("1", "   ", "x"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("blank name err = %v", err)
	}
	if _, err := s.Join("1", "Quantum Sage", "x"); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("taken name err = %v", err)
	}
}

func TestSessionUserUsesHigherVolatility(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Join("42", "Mine", "x"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got := s.volatilityLocked("Mine"); got != UserVolatility {
		t.Fatalf("user volatility = %v", got)
	}
	if got := s.volatilityLocked("Quantum Sage"); got != BotVolatility {
		t.Fatalf("bot volatility = %v", got)
	}
}

func TestSessionWithdrawKeepsOrphanedKeys(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Join("42", "Mine", "x"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	s.Tick(at0935.Add(2 * time.Second))

	removed, err := s.Withdraw()
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if removed.Name != "Mine" {
		t.Fatalf("removed = %+v", removed)
	}
	roster := s.Roster()
	if userCount(roster) != 0 || len(roster) != 10 {
		t.Fatalf("users=%d len=%d after withdraw", userCount(roster), len(roster))
	}
	for i, e := range roster {
		if e.Rank != i+1 {
			t.Fatalf("ranks not dense after withdraw: %+v", roster)
		}
	}
	hist := s.History(0)
	if _, ok := hist[len(hist)-1].Value("Mine"); !ok {
		t.Fatal("withdraw should keep the orphaned key")
	}
	if _, err := s.Withdraw(); !errors.Is(err, ErrNotJoined) {
		t.Fatalf("second withdraw err = %v", err)
	}

	s.Tick(at0935.Add(4 * time.Second))
	hist = s.History(0)
	if _, ok := hist[len(hist)-1].Value("Mine"); ok {
		t.Fatal("new points should not carry withdrawn agent")
	}
}

func TestSessionDeleteAgentPrunesHistory(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Join("42", "Mine", "x"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	s.Tick(at0935.Add(2 * time.Second))
	s.DeleteAgent("Mine")

	if _, ok := s.User(); ok {
		t.Fatal("user entry still present after delete")
	}
	for _, p := range s.History(0) {
		if _, ok := p.Value("Mine"); ok {
			t.Fatalf("point %s still has deleted agent", p.Time)
		}
	}
}

func TestSessionResetReplacesRoster(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Join("42", "Mine", "x"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	s.Reset(at0935.Add(time.Hour))
	snap := s.Snapshot()
	if len(snap.Roster) != 10 || userCount(snap.Roster) != 0 {
		t.Fatalf("reset roster len=%d users=%d", len(snap.Roster), userCount(snap.Roster))
	}
	if got := snap.History[len(snap.History)-1].Time; got != "10:35" {
		t.Fatalf("reset history ends at %q, want 10:35", got)
	}
}
