package profile

import (
	"errors"
	"strings"
	"time"
)

type Capability string

const (
	CapMarketScan Capability = "market_scan"
	CapSignal     Capability = "signal"
	CapRiskGuard  Capability = "risk_guard"
	CapReport     Capability = "report"
)

var capabilities = []Capability{CapMarketScan, CapSignal, CapRiskGuard, CapReport}

func Capabilities() []Capability {
	out := make([]Capability, len(capabilities))
	copy(out, capabilities)
	return out
}

func ParseCapability(v string) (Capability, bool) {
	c := Capability(strings.ToLower(strings.TrimSpace(v)))
	for _, known := range capabilities {
		if c == known {
			return c, true
		}
	}
	return "", false
}

var (
	ErrInvalidProfile = errors.New("invalid_profile")
	ErrInvalidStat    = errors.New("invalid_stat")
)

// Stats is the three-axis tuple shown on the agent card, each 0..100.
type Stats struct {
	Intelligence int `json:"intelligence"`
	Speed        int `json:"speed"`
	Risk         int `json:"risk"`
}

func (s Stats) Validate() error {
	for _, v := range []int{s.Intelligence, s.Speed, s.Risk} {
		if v < 0 || v > 100 {
			return ErrInvalidStat
		}
	}
	return nil
}

type Profile struct {
	ID         string                `json:"id,omitempty"`
	Name       string                `json:"name"`
	Class      string                `json:"class"`
	Stats      Stats                 `json:"stats"`
	Modules    []string              `json:"modules"`
	Prompts    map[Capability]string `json:"prompts"`
	Joined     bool                  `json:"joined"`
	WorkflowID string                `json:"workflow_id,omitempty"`
	PersonaID  string                `json:"persona_id,omitempty"`
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidProfile
	}
	return p.Stats.Validate()
}

// Clone returns a deep copy so callers can hand profiles across goroutines.
func (p Profile) Clone() Profile {
	out := p
	if p.Modules != nil {
		out.Modules = append([]string(nil), p.Modules...)
	}
	if p.Prompts != nil {
		out.Prompts = make(map[Capability]string, len(p.Prompts))
		for k, v := range p.Prompts {
			out.Prompts[k] = v
		}
	}
	return out
}

// UserSession is the logged-in user record carried by the browser.
type UserSession struct {
	Username   string    `json:"username"`
	TokenType  string    `json:"token_type"`
	LoggedInAt time.Time `json:"logged_in_at"`
}
