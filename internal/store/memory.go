package store

import (
	"context"
	"sync"

	"analyst-alchemist/internal/profile"
)

// MemoryStore keeps encoded profiles in process memory. It is used when no
// database is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string][]byte
}

func NewMemory() *MemoryStore {
	return &MemoryStore{rows: make(map[string][]byte)}
}

func (m *MemoryStore) LoadProfile(_ context.Context, owner string) (profile.Profile, error) {
	m.mu.RLock()
	b, ok := m.rows[owner]
	m.mu.RUnlock()
	if !ok {
		return profile.Profile{}, ErrNotFound
	}
	return profile.Decode(b)
}

func (m *MemoryStore) SaveProfile(_ context.Context, owner string, p profile.Profile) error {
	b, err := profile.Encode(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.rows[owner] = b
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteProfile(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[owner]; !ok {
		return ErrNotFound
	}
	delete(m.rows, owner)
	return nil
}
