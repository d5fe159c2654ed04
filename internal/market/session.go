package market

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"analyst-alchemist/internal/config"
)

var (
	ErrAlreadyJoined = errors.New("already_joined")
	ErrNotJoined     = errors.New("not_joined")
	ErrNameTaken     = errors.New("name_taken")
	ErrInvalidName   = errors.New("invalid_name")
)

type Config struct {
	HistoryCap     int
	SeedPoints     int
	SeedSpacing    time.Duration
	BotVolatility  float64
	UserVolatility float64
	NotifyChance   float64
}

func DefaultConfig() Config {
	return Config{
		HistoryCap:     DefaultHistoryCap,
		SeedPoints:     DefaultSeedPoints,
		SeedSpacing:    DefaultSeedSpacing,
		BotVolatility:  BotVolatility,
		UserVolatility: UserVolatility,
		NotifyChance:   0.04,
	}
}

func ConfigFrom(cfg config.MarketConfig) Config {
	out := Config{
		HistoryCap:     cfg.HistoryCap,
		SeedPoints:     cfg.SeedPoints,
		SeedSpacing:    time.Duration(cfg.SeedSpacingMins) * time.Minute,
		BotVolatility:  cfg.BotVolatility,
		UserVolatility: cfg.UserVolatility,
		NotifyChance:   cfg.NotifyChance,
	}
	def := DefaultConfig()
	if out.HistoryCap <= 0 {
		out.HistoryCap = def.HistoryCap
	}
	if out.SeedPoints <= 0 {
		out.SeedPoints = def.SeedPoints
	}
	if out.SeedSpacing <= 0 {
		out.SeedSpacing = def.SeedSpacing
	}
	if out.BotVolatility <= 0 {
		out.BotVolatility = def.BotVolatility
	}
	if out.UserVolatility <= 0 {
		out.UserVolatility = def.UserVolatility
	}
	if out.NotifyChance < 0 {
		out.NotifyChance = 0
	}
	return out
}

// Snapshot is a copy of the leaderboard and chart window.
type Snapshot struct {
	Roster  []Entry `json:"roster"`
	History []Point `json:"history"`
}

// Highlight is a market event worth a toast, emitted at random on ticks.
type Highlight struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type TickResult struct {
	Point     Point      `json:"point"`
	Roster    []Entry    `json:"roster"`
	Highlight *Highlight `json:"highlight,omitempty"`
}

// Session is the simulated market behind one dashboard. The tick loop and
// the explicit user actions are its only writers.
type Session struct {
	mu      sync.Mutex
	cfg     Config
	src     Source
	roster  []Entry
	history []Point
}

func NewSession(cfg Config, src Source, now time.Time) *Session {
	s := &Session{cfg: cfg, src: src}
	s.seedLocked(now)
	return s
}

func (s *Session) seedLocked(now time.Time) {
	roster := StarterRoster()
	s.history = SeedHistory(names(roster), now, s.cfg.SeedPoints, s.cfg.SeedSpacing, s.volatilityLocked, s.src)
	s.roster = Rank(roster, s.latestLocked())
}

// Tick appends one point and re-ranks from that point, in that order.
func (s *Session) Tick(now time.Time) TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = AppendPoint(s.history, names(s.roster), now, s.cfg.HistoryCap, s.volatilityLocked, s.src)
	s.roster = Rank(s.roster, s.latestLocked())

	res := TickResult{Point: s.latestLocked(), Roster: cloneEntries(s.roster)}
	if len(s.roster) > 0 && s.src.Float64() < s.cfg.NotifyChance {
		res.Highlight = s.highlightLocked()
	}
	return res
}

func (s *Session) highlightLocked() *Highlight {
	pick := s.roster[int(s.src.Float64()*float64(len(s.roster)))%len(s.roster)]
	if pick.Rank == 1 {
		return &Highlight{
			Title:   "New leader",
			Message: fmt.Sprintf("%s leads the arena at %s", pick.Name, pick.Profit),
		}
	}
	if pick.RawProfit < 0 {
		return &Highlight{
			Title:   "Drawdown alert",
			Message: fmt.Sprintf("%s slipped to #%d (%s)", pick.Name, pick.Rank, pick.Profit),
		}
	}
	return &Highlight{
		Title:   "Position opened",
		Message: fmt.Sprintf("%s opened a new position from #%d", pick.Name, pick.Rank),
	}
}

// Join appends the user's agent with zero profit and gives it a base value
// in the latest chart point.
func (s *Session) Join(id, name, class string) (Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Entry{}, ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.roster {
		if e.IsUser {
			return Entry{}, ErrAlreadyJoined
		}
		if e.Name == name {
			return Entry{}, ErrNameTaken
		}
	}
	if id == "" {
		id = "user"
	}
	entry := Entry{
		ID:     id,
		Name:   name,
		Class:  class,
		Rank:   len(s.roster) + 1,
		Profit: FormatProfit(0),
		Status: StatusOnline,
		IsUser: true,
	}
	s.roster = append(s.roster, entry)
	if n := len(s.history); n > 0 {
		last := s.history[n-1].clone()
		last.Values[name] = BaseValue
		s.history = append(s.history[:n-1:n-1], last)
	}
	s.roster = Rank(s.roster, s.latestLocked())
	for _, e := range s.roster {
		if e.IsUser {
			return e, nil
		}
	}
	return entry, nil
}

// Withdraw removes the user's entry. Retained chart points keep its key.
func (s *Session) Withdraw() (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed, ok := s.removeUserLocked()
	if !ok {
		return Entry{}, ErrNotJoined
	}
	return removed, nil
}

// DeleteAgent removes the user's entry, if any, and prunes name from every
// retained chart point.
func (s *Session) DeleteAgent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeUserLocked()
	if name = strings.TrimSpace(name); name != "" {
		s.history = PruneKey(s.history, name)
	}
}

// Reset replaces the roster wholesale and re-seeds the chart.
func (s *Session) Reset(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked(now)
}

func (s *Session) User() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.roster {
		if e.IsUser {
			return e, true
		}
	}
	return Entry{}, false
}

func (s *Session) Roster() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.roster)
}

// History returns the last limit points, or all of them when limit <= 0.
func (s *Session) History(limit int) []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if limit > 0 && len(s.history) > limit {
		start = len(s.history) - limit
	}
	out := make([]Point, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Snapshot{Roster: cloneEntries(s.roster), History: make([]Point, len(s.history))}
	copy(out.History, s.history)
	return out
}

func (s *Session) removeUserLocked() (Entry, bool) {
	for i, e := range s.roster {
		if !e.IsUser {
			continue
		}
		s.roster = append(s.roster[:i:i], s.roster[i+1:]...)
		s.roster = Rank(s.roster, s.latestLocked())
		return e, true
	}
	return Entry{}, false
}

func (s *Session) latestLocked() Point {
	if len(s.history) == 0 {
		return Point{}
	}
	return s.history[len(s.history)-1]
}

func (s *Session) volatilityLocked(name string) float64 {
	for _, e := range s.roster {
		if e.Name == name && e.IsUser {
			return s.cfg.UserVolatility
		}
	}
	return s.cfg.BotVolatility
}

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = e
		if e.Badges != nil {
			out[i].Badges = append([]string(nil), e.Badges...)
		}
	}
	return out
}
