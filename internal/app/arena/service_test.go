package arena

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"analyst-alchemist/internal/backend"
	"analyst-alchemist/internal/market"
	"analyst-alchemist/internal/profile"
	"analyst-alchemist/internal/store"
)

func openWithAgent(t *testing.T, m *Manager) *Dashboard {
	t.Helper()
	d, err := m.Open(context.Background(), OpenInput{Owner: store.UserOwner("ana"), Username: "ana"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	d.SetProfile(profile.Profile{ID: "agt_1", Name: "Alpha", Class: "Momentum Hunter"})
	return d
}

func TestJoinWithoutAgent(t *testing.T) {
	m := newTestManager(t, testMarketConfig(), store.NewMemory())
	svc := NewService(m, &fakeJoiner{})
	d, _ := m.Open(context.Background(), OpenInput{})
	if _, err := svc.Join(context.Background(), d, ""); !errors.Is(err, ErrNoAgent) {
		t.Fatalf("err = %v, want ErrNoAgent", err)
	}
}

func TestJoinEnrolsRemotelyThenLocally(t *testing.T) {
	repo := store.NewMemory()
	m := newTestManager(t, testMarketConfig(), repo)
	remote := &fakeJoiner{}
	svc := NewService(m, remote)
	d := openWithAgent(t, m)

	res, err := svc.Join(context.Background(), d, "tok")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if remote.calls != 1 || remote.token != "tok" {
		t.Fatalf("remote = %+v", remote)
	}
	if res.Activity == nil || res.Activity.ID != "12" {
		t.Fatalf("activity = %+v", res.Activity)
	}
	if !res.Entry.IsUser || res.Entry.Profit != "+0.0%" {
		t.Fatalf("entry = %+v", res.Entry)
	}
	saved, err := repo.LoadProfile(context.Background(), d.Owner())
	if err != nil || !saved.Joined {
		t.Fatalf("saved = %+v, %v", saved, err)
	}
	if _, err := svc.Join(context.Background(), d, "tok"); !errors.Is(err, market.ErrAlreadyJoined) {
		t.Fatalf("second join err = %v", err)
	}
}

func TestJoinRemoteFailureLeavesRoster(t *testing.T) {
	m := newTestManager(t, testMarketConfig(), store.NewMemory())
	remote := &fakeJoiner{err: &backend.APIError{Status: 400, Body: json.RawMessage(`{"detail":"season closed"}`)}}
	svc := NewService(m, remote)
	d := openWithAgent(t, m)

	if _, err := svc.Join(context.Background(), d, "tok"); err == nil {
		t.Fatalf("join succeeded despite remote failure")
	}
	if _, ok := d.Market.User(); ok {
		t.Fatalf("user entry added after remote failure")
	}
	active := d.Notices.Active()
	if len(active) != 1 || active[0].Message != "season closed" {
		t.Fatalf("notifications = %+v", active)
	}
}

func TestJoinAnonymousSkipsRemote(t *testing.T) {
	m := newTestManager(t, testMarketConfig(), store.NewMemory())
	remote := &fakeJoiner{}
	svc := NewService(m, remote)
	d := openWithAgent(t, m)
	if _, err := svc.Join(context.Background(), d, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if remote.calls != 0 {
		t.Fatalf("remote called without token")
	}
}

func TestWithdrawKeepsChartKey(t *testing.T) {
	m := newTestManager(t, testMarketConfig(), store.NewMemory())
	svc := NewService(m, nil)
	d := openWithAgent(t, m)
	if _, err := svc.Join(context.Background(), d, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := svc.Withdraw(context.Background(), d); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	hist := d.Market.History(1)
	if _, ok := hist[0].Values["Alpha"]; !ok {
		t.Fatalf("withdraw pruned the chart key")
	}
	if p, _ := d.Profile(); p.Joined {
		t.Fatalf("profile still joined")
	}
	if _, err := svc.Withdraw(context.Background(), d); !errors.Is(err, market.ErrNotJoined) {
		t.Fatalf("err = %v, want ErrNotJoined", err)
	}
}

func TestLogoutResetsDashboard(t *testing.T) {
	m := newTestManager(t, testMarketConfig(), store.NewMemory())
	svc := NewService(m, nil)
	d := openWithAgent(t, m)
	svc.Join(context.Background(), d, "")

	svc.Logout(context.Background(), d)
	st := d.State()
	if len(st.Roster) != 10 || st.Agent != nil || st.Username != "" {
		t.Fatalf("state after logout = %+v", st)
	}
	if d.Owner() != store.ClientOwner(d.ID) {
		t.Fatalf("owner after logout = %q, want the dashboard's own key", d.Owner())
	}
	for _, e := range st.Roster {
		if e.IsUser {
			t.Fatalf("user entry survived logout")
		}
	}
}
