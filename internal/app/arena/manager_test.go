package arena

import (
	"context"
	"errors"
	"testing"
	"time"

	"analyst-alchemist/internal/profile"
	"analyst-alchemist/internal/store"
	"analyst-alchemist/internal/stream"
)

func nextEvent(t *testing.T, ch chan stream.Event, name string) stream.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("stream closed waiting for %s", name)
			}
			if ev.Event == name {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", name)
		}
	}
}

func TestManagerTicksPublishEvents(t *testing.T) {
	cfg := testMarketConfig()
	cfg.TickIntervalMS = 5
	m := newTestManager(t, cfg, store.NewMemory())
	d, err := m.Open(context.Background(), OpenInput{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ch := d.Events.Subscribe()
	defer d.Events.Unsubscribe(ch)

	nextEvent(t, ch, "tick")
	if got := len(d.Market.History(0)); got <= cfg.SeedPoints {
		t.Fatalf("history len = %d, tick did not append", got)
	}
}

func TestManagerGetCloseAndSweep(t *testing.T) {
	m := newTestManager(t, testMarketConfig(), nil)
	ctx := context.Background()
	a, _ := m.Open(ctx, OpenInput{})
	b, _ := m.Open(ctx, OpenInput{})

	if _, err := m.Get(a.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := m.Close(a.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := m.Get(a.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
	if err := m.Close(a.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second close err = %v", err)
	}

	if n := m.Sweep(time.Now()); n != 0 {
		t.Fatalf("swept fresh dashboard: %d", n)
	}
	if n := m.Sweep(time.Now().Add(time.Hour)); n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}
	if _, err := m.Get(b.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired dashboard still reachable: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("len = %d", m.Len())
	}
}

func TestSweepKeepsWatchedDashboards(t *testing.T) {
	m := newTestManager(t, testMarketConfig(), nil)
	d, err := m.Open(context.Background(), OpenInput{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ch := d.Events.Subscribe()

	later := time.Now().Add(time.Hour)
	if n := m.Sweep(later); n != 0 {
		t.Fatalf("swept dashboard with a live stream: %d", n)
	}
	if _, err := m.Get(d.ID); err != nil {
		t.Fatalf("watched dashboard gone: %v", err)
	}
	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatal("stream closed by sweep")
		}
	default:
	}

	d.Events.Unsubscribe(ch)
	if n := m.Sweep(later); n != 1 {
		t.Fatalf("swept = %d after stream left, want 1", n)
	}
}

func TestOpenRestoresJoinedAgent(t *testing.T) {
	repo := store.NewMemory()
	ctx := context.Background()
	owner := store.UserOwner("ana")
	saved := profile.Profile{ID: "agt_1", Name: "Alpha", Class: "Momentum Hunter", Joined: true}
	if err := repo.SaveProfile(ctx, owner, saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	m := newTestManager(t, testMarketConfig(), repo)
	d, err := m.Open(ctx, OpenInput{Owner: owner, Username: "ana"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	st := d.State()
	if st.Agent == nil || st.Agent.Name != "Alpha" || !st.Agent.Joined {
		t.Fatalf("agent = %+v", st.Agent)
	}
	if len(st.Roster) != 11 {
		t.Fatalf("roster len = %d, want 11", len(st.Roster))
	}
	if st.Username != "ana" || d.Username() != "ana" {
		t.Fatalf("username not carried: %+v", st)
	}
}

func TestOpenDiscardsCorruptSavedAgent(t *testing.T) {
	repo := corruptRepo{}
	m := newTestManager(t, testMarketConfig(), repo)
	d, err := m.Open(context.Background(), OpenInput{Owner: "client:x"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := d.Profile(); ok {
		t.Fatalf("corrupt profile restored")
	}
	if n := d.Notices.Active(); len(n) != 1 {
		t.Fatalf("notifications = %+v", n)
	}
}

type corruptRepo struct{}

func (corruptRepo) LoadProfile(context.Context, string) (profile.Profile, error) {
	return profile.Profile{}, profile.ErrCorrupt
}
func (corruptRepo) SaveProfile(context.Context, string, profile.Profile) error { return nil }
func (corruptRepo) DeleteProfile(context.Context, string) error { return nil }

func TestShutdownRefusesNewDashboards(t *testing.T) {
	m := NewManager(testMarketConfig(), nil)
	d, _ := m.Open(context.Background(), OpenInput{})
	ch := d.Events.Subscribe()
	m.Shutdown()
	if _, ok := <-ch; ok {
		t.Fatalf("stream still open after shutdown")
	}
	if _, err := m.Open(context.Background(), OpenInput{}); !errors.Is(err, ErrManagerShutdown) {
		t.Fatalf("err = %v, want ErrManagerShutdown", err)
	}
}
