package arena

import (
	"context"
	"sync"
	"time"

	"analyst-alchemist/internal/market"
	"analyst-alchemist/internal/notify"
	"analyst-alchemist/internal/profile"
	"analyst-alchemist/internal/store"
	"analyst-alchemist/internal/stream"
	"analyst-alchemist/internal/wizard"
)

const eventBufferSize = 500

// Dashboard is one browser's live battle view: its own simulated market,
// notification center, event stream and agent wizard.
type Dashboard struct {
	ID      string
	Market  *market.Session
	Events  *stream.Buffer
	Notices *notify.Center

	mu       sync.Mutex
	wizard   *wizard.Wizard
	profile  *profile.Profile
	owner    string
	username string
	lastSeen time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// State is the full dashboard snapshot served to a freshly loaded page.
type State struct {
	SessionID     string                `json:"session_id"`
	Username      string                `json:"username,omitempty"`
	Roster        []market.Entry        `json:"roster"`
	History       []market.Point        `json:"history"`
	Agent         *profile.Profile      `json:"agent,omitempty"`
	Notifications []notify.Notification `json:"notifications"`
	Wizard        *wizard.State         `json:"wizard,omitempty"`
}

func (d *Dashboard) State() State {
	snap := d.Market.Snapshot()
	st := State{
		SessionID:     d.ID,
		Roster:        snap.Roster,
		History:       snap.History,
		Notifications: d.Notices.Active(),
	}
	d.mu.Lock()
	st.Username = d.username
	if d.profile != nil {
		p := d.profile.Clone()
		st.Agent = &p
	}
	w := d.wizard
	d.mu.Unlock()
	if w != nil {
		ws := w.State()
		st.Wizard = &ws
	}
	return st
}

// Notify pushes a toast; the center's hook mirrors it onto the event stream.
func (d *Dashboard) Notify(level notify.Level, title, message string) notify.Notification {
	return d.Notices.Push(level, title, message)
}

func (d *Dashboard) Profile() (profile.Profile, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.profile == nil {
		return profile.Profile{}, false
	}
	return d.profile.Clone(), true
}

func (d *Dashboard) SetProfile(p profile.Profile) {
	p = p.Clone()
	d.mu.Lock()
	d.profile = &p
	d.mu.Unlock()
}

func (d *Dashboard) ClearProfile() {
	d.mu.Lock()
	d.profile = nil
	d.mu.Unlock()
}

// Owner is the store key the dashboard's agent is saved under.
func (d *Dashboard) Owner() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owner
}

// Username is the verified user the dashboard was opened for, if any.
func (d *Dashboard) Username() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.username
}

// signOut detaches the dashboard from its user; later saves go to an
// anonymous owner bound to this dashboard only.
func (d *Dashboard) signOut() {
	d.mu.Lock()
	d.username = ""
	d.owner = store.ClientOwner(d.ID)
	d.mu.Unlock()
}

// StartWizard replaces any wizard in progress with a fresh one.
func (d *Dashboard) StartWizard(backtest time.Duration) *wizard.Wizard {
	w := wizard.New(
		wizard.WithBacktestDuration(backtest),
		wizard.OnChange(func(s wizard.State) { d.Events.Append("wizard", s) }),
	)
	d.mu.Lock()
	old := d.wizard
	d.wizard = w
	d.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return w
}

func (d *Dashboard) Wizard() (*wizard.Wizard, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.wizard == nil {
		return nil, ErrWizardNotStarted
	}
	return d.wizard, nil
}

func (d *Dashboard) dropWizard() {
	d.mu.Lock()
	w := d.wizard
	d.wizard = nil
	d.mu.Unlock()
	if w != nil {
		w.Close()
	}
}

func (d *Dashboard) touch(now time.Time) {
	d.mu.Lock()
	d.lastSeen = now
	d.mu.Unlock()
}

func (d *Dashboard) idleSince(now time.Time) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return now.Sub(d.lastSeen)
}

// PublishRoster pushes the current leaderboard onto the event stream.
func (d *Dashboard) PublishRoster() {
	d.Events.Append("roster", d.Market.Roster())
}
