package notify

import (
	"sync"
	"time"

	"analyst-alchemist/internal/ids"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const (
	DefaultTTL        = 5 * time.Second
	DefaultHistoryCap = 50
)

type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Center holds the toasts of one dashboard session. Active toasts expire
// after ttl; every toast is also kept in a capped history, newest first.
type Center struct {
	mu         sync.Mutex
	ttl        time.Duration
	historyCap int
	active     []Notification
	history    []Notification
	now        func() time.Time
	onPush     func(Notification)
}

type Option func(*Center)

func WithTTL(ttl time.Duration) Option {
	return func(c *Center) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithHistoryCap(n int) Option {
	return func(c *Center) {
		if n > 0 {
			c.historyCap = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Center) {
		if now != nil {
			c.now = now
		}
	}
}

// OnPush registers a hook called, outside the lock, for every new toast.
func OnPush(fn func(Notification)) Option {
	return func(c *Center) { c.onPush = fn }
}

func NewCenter(opts ...Option) *Center {
	c := &Center{
		ttl:        DefaultTTL,
		historyCap: DefaultHistoryCap,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Center) Push(level Level, title, message string) Notification {
	c.mu.Lock()
	now := c.now()
	n := Notification{
		ID:        ids.New("note"),
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.pruneLocked(now)
	c.active = append(c.active, n)
	c.history = append([]Notification{n}, c.history...)
	if len(c.history) > c.historyCap {
		c.history = c.history[:c.historyCap]
	}
	hook := c.onPush
	c.mu.Unlock()

	metricNotificationsTotal.Add(1)
	if hook != nil {
		hook(n)
	}
	return n
}

func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.now())
	out := make([]Notification, len(c.active))
	copy(out, c.active)
	return out
}

func (c *Center) History() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.history))
	copy(out, c.history)
	return out
}

// Dismiss removes a toast from the active set; history keeps it.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.active {
		if n.ID == id {
			c.active = append(c.active[:i], c.active[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Center) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

func (c *Center) pruneLocked(now time.Time) {
	kept := c.active[:0]
	for _, n := range c.active {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	c.active = kept
}
