package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"analyst-alchemist/internal/app/arena"
	"analyst-alchemist/internal/backend"
	"analyst-alchemist/internal/ids"
	"analyst-alchemist/internal/notify"
	"analyst-alchemist/internal/profile"
	"analyst-alchemist/internal/store"
)

const localIDPrefix = "agt"

// Remote is the backend surface used for agent lifecycle calls.
type Remote interface {
	CreateAgentV2(ctx context.Context, token string, req backend.CreateAgentV2Request) (string, error)
	DeleteAgent(ctx context.Context, token, agentID string) error
}

type Service struct {
	repo   store.Repository
	remote Remote
}

func NewService(repo store.Repository, remote Remote) *Service {
	return &Service{repo: repo, remote: remote}
}

func (s *Service) Get(d *arena.Dashboard) (profile.Profile, error) {
	p, ok := d.Profile()
	if !ok {
		return profile.Profile{}, arena.ErrNoAgent
	}
	return p, nil
}

// Deploy turns a finished wizard into the dashboard's agent. With a bearer
// token the agent gets a backend-assigned id; a backend failure leaves the
// wizard where it was. A replaced agent that lives on the backend is deleted
// there once the new one exists. The new agent then joins the local
// leaderboard.
func (s *Service) Deploy(ctx context.Context, d *arena.Dashboard, token string) (profile.Profile, error) {
	w, err := d.Wizard()
	if err != nil {
		return profile.Profile{}, err
	}
	cur, hasCur := d.Profile()
	if hasCur && cur.Joined {
		return profile.Profile{}, ErrJoinedLocked
	}
	online := token != "" && s.remote != nil
	if hasCur && isRemoteID(cur.ID) && !online {
		return profile.Profile{}, ErrAuthRequired
	}
	p, err := w.BeginDeploy()
	if err != nil {
		return profile.Profile{}, err
	}

	if online {
		id, err := s.remote.CreateAgentV2(ctx, token, backend.CreateAgentV2Request{
			AgentName:  p.Name,
			WorkflowID: p.WorkflowID,
			PersonaID:  p.PersonaID,
		})
		if err != nil {
			w.AbortDeploy()
			log.Warn().Err(err).Str("session_id", d.ID).Msg("remote agent create failed")
			d.Notify(notify.LevelError, "Deploy failed", backend.Message(err, "Could not create your agent. Please try again."))
			return profile.Profile{}, err
		}
		p.ID = id
	} else {
		p.ID = ids.New(localIDPrefix)
	}

	if hasCur {
		if isRemoteID(cur.ID) && cur.ID != p.ID {
			if err := s.remote.DeleteAgent(ctx, token, cur.ID); err != nil {
				log.Error().Err(err).Str("agent_id", cur.ID).Msg("remote delete of replaced agent failed")
				d.Notify(notify.LevelWarning, "Old agent kept", backend.Message(err, cur.Name+" could not be removed from your account."))
			}
		}
		d.Market.DeleteAgent(cur.Name)
	}
	if _, err := d.Market.Join(p.ID, p.Name, p.Class); err != nil {
		d.Notify(notify.LevelWarning, "Not in arena", "Your agent was created but could not join the leaderboard.")
	} else {
		p.Joined = true
	}
	s.save(ctx, d, p)
	d.SetProfile(p)
	w.MarkDeployed()
	d.PublishRoster()
	d.Notify(notify.LevelSuccess, "Agent deployed", p.Name+" is ready.")
	return p, nil
}

// isRemoteID reports whether the agent was created on the backend.
func isRemoteID(id string) bool {
	return id != "" && !ids.Valid(localIDPrefix, id)
}

func (s *Service) UpdatePrompt(ctx context.Context, d *arena.Dashboard, in PromptInput) (profile.Profile, error) {
	capability, ok := profile.ParseCapability(in.Capability)
	if !ok {
		return profile.Profile{}, ErrInvalidRequest
	}
	p, ok := d.Profile()
	if !ok {
		return profile.Profile{}, arena.ErrNoAgent
	}
	if p.Prompts == nil {
		p.Prompts = map[profile.Capability]string{}
	}
	p.Prompts[capability] = strings.TrimSpace(in.Prompt)
	s.save(ctx, d, p)
	d.SetProfile(p)
	d.Events.Append("agent", p)
	return p, nil
}

// Reconfigure edits the agent card. It is refused while the agent is in the
// competition so the leaderboard name stays stable.
func (s *Service) Reconfigure(ctx context.Context, d *arena.Dashboard, in ReconfigureInput) (profile.Profile, error) {
	p, ok := d.Profile()
	if !ok {
		return profile.Profile{}, arena.ErrNoAgent
	}
	if p.Joined {
		return profile.Profile{}, ErrJoinedLocked
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		p.Name = name
	}
	if class := strings.TrimSpace(in.Class); class != "" {
		p.Class = class
	}
	if in.Stats != nil {
		p.Stats = *in.Stats
	}
	if in.Modules != nil {
		p.Modules = append([]string(nil), in.Modules...)
	}
	if err := p.Validate(); err != nil {
		return profile.Profile{}, err
	}
	s.save(ctx, d, p)
	d.SetProfile(p)
	d.Events.Append("agent", p)
	return p, nil
}

// Delete removes the agent everywhere: backend (when it has a backend id),
// leaderboard, chart lines and the store.
func (s *Service) Delete(ctx context.Context, d *arena.Dashboard, token string) error {
	p, ok := d.Profile()
	if !ok {
		return arena.ErrNoAgent
	}
	if isRemoteID(p.ID) {
		if token == "" || s.remote == nil {
			return ErrAuthRequired
		}
		if err := s.remote.DeleteAgent(ctx, token, p.ID); err != nil {
			log.Warn().Err(err).Str("agent_id", p.ID).Msg("remote agent delete failed")
			d.Notify(notify.LevelError, "Delete failed", backend.Message(err, "Could not delete your agent. Please try again."))
			return err
		}
	}
	d.Market.DeleteAgent(p.Name)
	if s.repo != nil {
		if err := s.repo.DeleteProfile(ctx, d.Owner()); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("owner", d.Owner()).Msg("delete saved agent failed")
		}
	}
	d.ClearProfile()
	d.PublishRoster()
	d.Notify(notify.LevelInfo, "Agent deleted", p.Name+" was retired.")
	return nil
}

func (s *Service) save(ctx context.Context, d *arena.Dashboard, p profile.Profile) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveProfile(ctx, d.Owner(), p); err != nil {
		log.Error().Err(err).Str("owner", d.Owner()).Msg("save agent failed")
		d.Notify(notify.LevelWarning, "Not saved", "Your agent could not be saved.")
	}
}
