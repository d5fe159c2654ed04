package arena

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"analyst-alchemist/internal/config"
	"analyst-alchemist/internal/ids"
	"analyst-alchemist/internal/market"
	"analyst-alchemist/internal/notify"
	"analyst-alchemist/internal/profile"
	"analyst-alchemist/internal/store"
	"analyst-alchemist/internal/stream"
)

// Manager owns every open dashboard and drives their tick loops.
type Manager struct {
	cfg    config.MarketConfig
	market market.Config
	repo   store.Repository

	now       func() time.Time
	newSource func() market.Source

	mu         sync.Mutex
	dashboards map[string]*Dashboard
	closed     bool
}

type ManagerOption func(*Manager)

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSource sets the randomness factory used for each new dashboard.
func WithSource(fn func() market.Source) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newSource = fn
		}
	}
}

func NewManager(cfg config.MarketConfig, repo store.Repository, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:        cfg,
		market:     market.ConfigFrom(cfg),
		repo:       repo,
		now:        time.Now,
		dashboards: map[string]*Dashboard{},
		newSource: func() market.Source {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Repository() store.Repository { return m.repo }

func (m *Manager) Config() config.MarketConfig { return m.cfg }

// OpenInput names the store owner of a new dashboard. Username is set only
// for a verified login session.
type OpenInput struct {
	Owner    string
	Username string
}

// Open creates a dashboard and restores the owner's saved agent. A saved
// agent that was in the competition rejoins the fresh roster.
func (m *Manager) Open(ctx context.Context, in OpenInput) (*Dashboard, error) {
	now := m.now()
	id := ids.NewUnguessable("dash")
	if in.Owner == "" {
		in.Owner = store.ClientOwner(id)
	}
	d := &Dashboard{
		ID:       id,
		owner:    in.Owner,
		Market:   market.NewSession(m.market, m.newSource(), now),
		Events:   stream.NewBuffer(id, eventBufferSize),
		username: in.Username,
		lastSeen: now,
		done:     make(chan struct{}),
	}
	d.Notices = notify.NewCenter(
		notify.WithTTL(m.cfg.NotificationTTL()),
		notify.OnPush(func(n notify.Notification) { d.Events.Append("notification", n) }),
	)
	m.restoreProfile(ctx, d)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		d.Events.Close()
		return nil, ErrManagerShutdown
	}
	m.dashboards[id] = d
	m.mu.Unlock()

	tickCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go m.run(tickCtx, d)

	sessionsOpenedTotal.Add(1)
	sessionsActive.Add(1)
	log.Info().Str("session_id", id).Str("owner", in.Owner).Msg("dashboard opened")
	return d, nil
}

func (m *Manager) restoreProfile(ctx context.Context, d *Dashboard) {
	if m.repo == nil {
		return
	}
	p, err := m.repo.LoadProfile(ctx, d.Owner())
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return
	case errors.Is(err, profile.ErrCorrupt), errors.Is(err, profile.ErrUnsupportedVersion):
		log.Warn().Err(err).Str("owner", d.Owner()).Msg("discarding unreadable saved agent")
		d.Notify(notify.LevelWarning, "Saved agent unavailable", "Your saved agent could not be restored.")
		return
	default:
		log.Error().Err(err).Str("owner", d.Owner()).Msg("load saved agent failed")
		return
	}
	if p.Joined {
		if _, err := d.Market.Join(p.ID, p.Name, p.Class); err != nil {
			log.Warn().Err(err).Str("owner", d.Owner()).Msg("saved agent could not rejoin")
			p.Joined = false
		}
	}
	d.SetProfile(p)
}

func (m *Manager) run(ctx context.Context, d *Dashboard) {
	defer close(d.done)
	interval := m.cfg.TickInterval()
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(d)
		}
	}
}

func (m *Manager) tick(d *Dashboard) {
	res := d.Market.Tick(m.now())
	ticksTotal.Add(1)
	d.Events.Append("tick", res)
	if res.Highlight != nil {
		d.Notify(notify.LevelInfo, res.Highlight.Title, res.Highlight.Message)
	}
}

// Get returns the dashboard and marks it as recently used.
func (m *Manager) Get(id string) (*Dashboard, error) {
	m.mu.Lock()
	d := m.dashboards[id]
	m.mu.Unlock()
	if d == nil {
		return nil, ErrSessionNotFound
	}
	d.touch(m.now())
	return d, nil
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	d := m.dashboards[id]
	delete(m.dashboards, id)
	m.mu.Unlock()
	if d == nil {
		return ErrSessionNotFound
	}
	m.stop(d)
	log.Info().Str("session_id", id).Msg("dashboard closed")
	return nil
}

func (m *Manager) stop(d *Dashboard) {
	if d.cancel != nil {
		d.cancel()
		<-d.done
	}
	d.dropWizard()
	d.Events.Close()
	sessionsActive.Add(-1)
}

// Len reports the number of open dashboards.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dashboards)
}

// Sweep closes dashboards idle for longer than the configured window.
// Dashboards with an attached event stream are never idle.
func (m *Manager) Sweep(now time.Time) int {
	idle := m.cfg.SessionIdle()
	if idle <= 0 {
		return 0
	}
	m.mu.Lock()
	var stale []*Dashboard
	for id, d := range m.dashboards {
		if d.Events.Subscribers() == 0 && d.idleSince(now) > idle {
			stale = append(stale, d)
			delete(m.dashboards, id)
		}
	}
	m.mu.Unlock()
	for _, d := range stale {
		m.stop(d)
		sessionsExpiredTotal.Add(1)
		log.Info().Str("session_id", d.ID).Msg("dashboard expired")
	}
	return len(stale)
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.Sweep(now)
			}
		}
	}()
}

// Shutdown closes every dashboard and refuses new ones.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	all := make([]*Dashboard, 0, len(m.dashboards))
	for id, d := range m.dashboards {
		all = append(all, d)
		delete(m.dashboards, id)
	}
	m.mu.Unlock()
	for _, d := range all {
		m.stop(d)
	}
}
