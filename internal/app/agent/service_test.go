package agent

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"analyst-alchemist/internal/app/arena"
	"analyst-alchemist/internal/backend"
	"analyst-alchemist/internal/config"
	"analyst-alchemist/internal/ids"
	"analyst-alchemist/internal/market"
	"analyst-alchemist/internal/profile"
	"analyst-alchemist/internal/store"
	"analyst-alchemist/internal/wizard"
)

type fakeRemote struct {
	createID  string
	createErr error
	deleteErr error
	created   []backend.CreateAgentV2Request
	deleted   []string
}

func (f *fakeRemote) CreateAgentV2(_ context.Context, _ string, req backend.CreateAgentV2Request) (string, error) {
	f.created = append(f.created, req)
	return f.createID, f.createErr
}

func (f *fakeRemote) DeleteAgent(_ context.Context, _, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func newDashboard(t *testing.T, repo store.Repository) *arena.Dashboard {
	t.Helper()
	cfg := config.MarketConfig{
		TickIntervalMS:   int(time.Hour.Milliseconds()),
		HistoryCap:       60,
		SeedPoints:       50,
		SeedSpacingMins:  5,
		SessionIdleMins:  30,
		NotificationTTLS: 5,
	}
	m := arena.NewManager(cfg, repo, arena.WithSource(func() market.Source { return rand.New(rand.NewSource(1)) }))
	t.Cleanup(m.Shutdown)
	d, err := m.Open(context.Background(), arena.OpenInput{Owner: store.UserOwner("ana"), Username: "ana"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return d
}

func finishWizard(t *testing.T, d *arena.Dashboard, name string) *wizard.Wizard {
	t.Helper()
	w := d.StartWizard(10 * time.Millisecond)
	w.SetName(name)
	w.Next()
	w.SelectWorkflow("value")
	w.Next()
	w.SelectPersona("deep_value")
	w.Next()
	w.SkipKnowledge()
	if _, err := w.StartBacktest(); err != nil {
		t.Fatalf("start backtest: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.WaitBacktest(ctx); err != nil {
		t.Fatalf("wait backtest: %v", err)
	}
	return w
}

func TestDeployLocalAgentJoinsRoster(t *testing.T) {
	repo := store.NewMemory()
	d := newDashboard(t, repo)
	remote := &fakeRemote{}
	svc := NewService(repo, remote)
	w := finishWizard(t, d, "Value Monk")

	p, err := svc.Deploy(context.Background(), d, "")
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if !ids.Valid(localIDPrefix, p.ID) || !p.Joined {
		t.Fatalf("profile = %+v", p)
	}
	if len(remote.created) != 0 {
		t.Fatalf("remote create called without token")
	}
	if u, ok := d.Market.User(); !ok || u.Name != "Value Monk" {
		t.Fatalf("user entry = %+v, %v", u, ok)
	}
	if !w.State().Deployed {
		t.Fatalf("wizard not marked deployed")
	}
	saved, err := repo.LoadProfile(context.Background(), d.Owner())
	if err != nil || saved.ID != p.ID {
		t.Fatalf("saved = %+v, %v", saved, err)
	}
}

func TestDeployUsesBackendID(t *testing.T) {
	repo := store.NewMemory()
	d := newDashboard(t, repo)
	remote := &fakeRemote{createID: "991"}
	svc := NewService(repo, remote)
	finishWizard(t, d, "Value Monk")

	p, err := svc.Deploy(context.Background(), d, "tok")
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if p.ID != "991" {
		t.Fatalf("id = %q", p.ID)
	}
	want := backend.CreateAgentV2Request{AgentName: "Value Monk", WorkflowID: "value", PersonaID: "deep_value"}
	if len(remote.created) != 1 || remote.created[0] != want {
		t.Fatalf("created = %+v", remote.created)
	}
}

func TestDeployRemoteFailureKeepsWizard(t *testing.T) {
	repo := store.NewMemory()
	d := newDashboard(t, repo)
	remote := &fakeRemote{createErr: &backend.APIError{Status: 422, Body: json.RawMessage(`{"detail":[{"msg":"name too long"}]}`)}}
	svc := NewService(repo, remote)
	w := finishWizard(t, d, "Value Monk")

	if _, err := svc.Deploy(context.Background(), d, "tok"); err == nil {
		t.Fatalf("deploy succeeded")
	}
	st := w.State()
	if st.Step != wizard.StepSimulation || st.Deployed {
		t.Fatalf("wizard moved: %+v", st)
	}
	if _, ok := d.Profile(); ok {
		t.Fatalf("profile set after failure")
	}
	if n := d.Notices.Active(); len(n) != 1 || n[0].Message != "name too long" {
		t.Fatalf("notifications = %+v", n)
	}
}

func TestDeployWithoutWizard(t *testing.T) {
	d := newDashboard(t, nil)
	if _, err := NewService(nil, nil).Deploy(context.Background(), d, ""); !errors.Is(err, arena.ErrWizardNotStarted) {
		t.Fatalf("err = %v", err)
	}
}

func TestReconfigureRejectedWhileJoined(t *testing.T) {
	repo := store.NewMemory()
	d := newDashboard(t, repo)
	svc := NewService(repo, nil)
	finishWizard(t, d, "Value Monk")
	if _, err := svc.Deploy(context.Background(), d, ""); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if _, err := svc.Reconfigure(context.Background(), d, ReconfigureInput{Name: "Other"}); !errors.Is(err, ErrJoinedLocked) {
		t.Fatalf("err = %v, want ErrJoinedLocked", err)
	}

	d.Market.Withdraw()
	p, _ := d.Profile()
	p.Joined = false
	d.SetProfile(p)

	got, err := svc.Reconfigure(context.Background(), d, ReconfigureInput{Name: "  Other  ", Stats: &profile.Stats{Intelligence: 10, Speed: 20, Risk: 30}})
	if err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if got.Name != "Other" || got.Stats.Risk != 30 {
		t.Fatalf("profile = %+v", got)
	}
	if _, err := svc.Reconfigure(context.Background(), d, ReconfigureInput{Stats: &profile.Stats{Risk: 101}}); !errors.Is(err, profile.ErrInvalidStat) {
		t.Fatalf("err = %v, want ErrInvalidStat", err)
	}
}

func TestUpdatePrompt(t *testing.T) {
	repo := store.NewMemory()
	d := newDashboard(t, repo)
	svc := NewService(repo, nil)
	if _, err := svc.UpdatePrompt(context.Background(), d, PromptInput{Capability: "signal", Prompt: "x"}); !errors.Is(err, arena.ErrNoAgent) {
		t.Fatalf("err = %v, want ErrNoAgent", err)
	}
	d.SetProfile(profile.Profile{ID: "agt_x", Name: "Alpha"})
	if _, err := svc.UpdatePrompt(context.Background(), d, PromptInput{Capability: "telepathy"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	p, err := svc.UpdatePrompt(context.Background(), d, PromptInput{Capability: "Risk_Guard", Prompt: " stop at -5% "})
	if err != nil {
		t.Fatalf("update prompt: %v", err)
	}
	if p.Prompts[profile.CapRiskGuard] != "stop at -5%" {
		t.Fatalf("prompts = %+v", p.Prompts)
	}
}

func TestDeleteCascades(t *testing.T) {
	repo := store.NewMemory()
	d := newDashboard(t, repo)
	remote := &fakeRemote{createID: "77"}
	svc := NewService(repo, remote)
	finishWizard(t, d, "Value Monk")
	if _, err := svc.Deploy(context.Background(), d, "tok"); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	d.Market.Tick(time.Now())

	if err := svc.Delete(context.Background(), d, "tok"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != "77" {
		t.Fatalf("deleted = %v", remote.deleted)
	}
	if _, ok := d.Market.User(); ok {
		t.Fatalf("user entry survived delete")
	}
	for _, pt := range d.Market.History(0) {
		if _, ok := pt.Values["Value Monk"]; ok {
			t.Fatalf("chart key survived delete at %s", pt.Time)
		}
	}
	if _, err := repo.LoadProfile(context.Background(), d.Owner()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("saved profile survived: %v", err)
	}
	if err := svc.Delete(context.Background(), d, "tok"); !errors.Is(err, arena.ErrNoAgent) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestDeleteRemoteFailureKeepsAgent(t *testing.T) {
	repo := store.NewMemory()
	d := newDashboard(t, repo)
	d.SetProfile(profile.Profile{ID: "55", Name: "Alpha"})
	remote := &fakeRemote{deleteErr: backend.ErrUnavailable}
	if err := NewService(repo, remote).Delete(context.Background(), d, "tok"); !errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := d.Profile(); !ok {
		t.Fatalf("profile cleared after remote failure")
	}
}

func TestDeployReplacesRemoteAgent(t *testing.T) {
	repo := store.NewMemory()
	d := newDashboard(t, repo)
	d.SetProfile(profile.Profile{ID: "41", Name: "Old Timer", Class: "Momentum Hunter"})
	remote := &fakeRemote{createID: "42"}
	svc := NewService(repo, remote)
	finishWizard(t, d, "Value Monk")

	p, err := svc.Deploy(context.Background(), d, "tok")
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if p.ID != "42" {
		t.Fatalf("id = %q", p.ID)
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != "41" {
		t.Fatalf("replaced agent not deleted remotely: %v", remote.deleted)
	}
}

func TestDeployReplacingRemoteAgentNeedsToken(t *testing.T) {
	repo := store.NewMemory()
	d := newDashboard(t, repo)
	d.SetProfile(profile.Profile{ID: "41", Name: "Old Timer", Class: "Momentum Hunter"})
	remote := &fakeRemote{createID: "42"}
	w := finishWizard(t, d, "Value Monk")

	if _, err := NewService(repo, remote).Deploy(context.Background(), d, ""); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("err = %v, want ErrAuthRequired", err)
	}
	if len(remote.created) != 0 || len(remote.deleted) != 0 {
		t.Fatalf("remote touched: created=%v deleted=%v", remote.created, remote.deleted)
	}
	if st := w.State(); st.Deploying || st.Deployed {
		t.Fatalf("wizard state = %+v", st)
	}
}

func TestDeployRemoteFailureReleasesWizard(t *testing.T) {
	repo := store.NewMemory()
	d := newDashboard(t, repo)
	remote := &fakeRemote{createErr: backend.ErrUnavailable}
	svc := NewService(repo, remote)
	finishWizard(t, d, "Value Monk")

	if _, err := svc.Deploy(context.Background(), d, "tok"); err == nil {
		t.Fatal("deploy succeeded")
	}
	remote.createErr, remote.createID = nil, "43"
	p, err := svc.Deploy(context.Background(), d, "tok")
	if err != nil {
		t.Fatalf("retry deploy: %v", err)
	}
	if p.ID != "43" || len(remote.created) != 2 {
		t.Fatalf("id = %q created = %d", p.ID, len(remote.created))
	}
	if _, err := svc.Deploy(context.Background(), d, "tok"); !errors.Is(err, wizard.ErrDeployed) {
		t.Fatalf("third deploy err = %v, want ErrDeployed", err)
	}
}

func TestDeleteRemoteAgentNeedsToken(t *testing.T) {
	repo := store.NewMemory()
	d := newDashboard(t, repo)
	d.SetProfile(profile.Profile{ID: "55", Name: "Alpha"})
	remote := &fakeRemote{}
	if err := NewService(repo, remote).Delete(context.Background(), d, ""); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("err = %v, want ErrAuthRequired", err)
	}
	if len(remote.deleted) != 0 {
		t.Fatalf("remote delete called without token")
	}
	if _, ok := d.Profile(); !ok {
		t.Fatal("profile cleared without a token")
	}
}
