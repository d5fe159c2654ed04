package arena

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"analyst-alchemist/internal/backend"
	"analyst-alchemist/internal/market"
	"analyst-alchemist/internal/notify"
	"analyst-alchemist/internal/profile"
)

// ActivityJoiner enrols an authenticated user in the running competition.
type ActivityJoiner interface {
	JoinCurrentActivity(ctx context.Context, token string) (backend.Activity, error)
}

type Service struct {
	manager *Manager
	remote  ActivityJoiner
}

func NewService(m *Manager, remote ActivityJoiner) *Service {
	return &Service{manager: m, remote: remote}
}

type JoinResult struct {
	Entry    market.Entry      `json:"entry"`
	Activity *backend.Activity `json:"activity,omitempty"`
}

// Join puts the dashboard's agent into the competition. With a bearer token
// the user is first enrolled in the backend's active activity; a backend
// failure leaves the roster untouched.
func (s *Service) Join(ctx context.Context, d *Dashboard, token string) (*JoinResult, error) {
	p, ok := d.Profile()
	if !ok {
		d.Notify(notify.LevelWarning, "No agent", "Create an agent before joining the competition.")
		return nil, ErrNoAgent
	}
	if p.Joined {
		return nil, market.ErrAlreadyJoined
	}
	res := &JoinResult{}
	if token != "" && s.remote != nil {
		act, err := s.remote.JoinCurrentActivity(ctx, token)
		if err != nil {
			log.Warn().Err(err).Str("session_id", d.ID).Msg("join activity failed")
			d.Notify(notify.LevelError, "Join failed", backend.Message(err, "Could not join the competition. Please try again."))
			return nil, err
		}
		res.Activity = &act
	}
	entry, err := d.Market.Join(p.ID, p.Name, p.Class)
	if err != nil {
		d.Notify(notify.LevelError, "Join failed", joinMessage(err))
		return nil, err
	}
	res.Entry = entry
	p.Joined = true
	d.SetProfile(p)
	s.save(ctx, d, p)
	d.PublishRoster()
	joinsTotal.Add(1)
	d.Notify(notify.LevelSuccess, "Joined", p.Name+" entered the arena.")
	return res, nil
}

// Withdraw pulls the agent out of the roster. Its chart line stays.
func (s *Service) Withdraw(ctx context.Context, d *Dashboard) (market.Entry, error) {
	entry, err := d.Market.Withdraw()
	if err != nil {
		return market.Entry{}, err
	}
	if p, ok := d.Profile(); ok {
		p.Joined = false
		d.SetProfile(p)
		s.save(ctx, d, p)
	}
	d.PublishRoster()
	d.Notify(notify.LevelInfo, "Withdrawn", entry.Name+" left the arena.")
	return entry, nil
}

// Logout forgets the user and agent on this dashboard and restores the
// starter leaderboard. The saved agent stays in the store, and the dashboard
// no longer writes to it.
func (s *Service) Logout(_ context.Context, d *Dashboard) {
	d.signOut()
	d.ClearProfile()
	d.dropWizard()
	d.Market.Reset(s.manager.now())
	d.Events.Append("reset", d.Market.Snapshot())
	d.Notify(notify.LevelInfo, "Signed out", "See you next season.")
}

func (s *Service) save(ctx context.Context, d *Dashboard, p profile.Profile) {
	repo := s.manager.Repository()
	if repo == nil {
		return
	}
	if err := repo.SaveProfile(ctx, d.Owner(), p); err != nil {
		log.Error().Err(err).Str("owner", d.Owner()).Msg("save agent failed")
		d.Notify(notify.LevelWarning, "Not saved", "Your agent could not be saved.")
	}
}

func joinMessage(err error) string {
	switch {
	case errors.Is(err, market.ErrNameTaken):
		return "Another agent in the arena already uses that name."
	case errors.Is(err, market.ErrAlreadyJoined):
		return "Your agent is already in the arena."
	}
	return "Could not join the competition."
}
