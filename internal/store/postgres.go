package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"analyst-alchemist/internal/profile"
)

// Store is the Postgres-backed Repository.
type Store struct {
	Pool *pgxpool.Pool
}

func New(dsn string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

// LoadProfile returns ErrNotFound when nothing is stored, and a wrapped
// profile.ErrCorrupt when the stored payload cannot be read.
func (s *Store) LoadProfile(ctx context.Context, owner string) (profile.Profile, error) {
	var payload []byte
	err := s.Pool.QueryRow(ctx, `SELECT payload FROM agent_profiles WHERE owner = $1`, owner).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile.Profile{}, ErrNotFound
		}
		return profile.Profile{}, err
	}
	return profile.Decode(payload)
}

func (s *Store) SaveProfile(ctx context.Context, owner string, p profile.Profile) error {
	payload, err := profile.Encode(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO agent_profiles (owner, profile_id, agent_name, payload, version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner) DO UPDATE SET
			profile_id = EXCLUDED.profile_id,
			agent_name = EXCLUDED.agent_name,
			payload = EXCLUDED.payload,
			version = EXCLUDED.version,
			updated_at = now()`,
		owner, p.ID, p.Name, payload, profile.CurrentVersion)
	return err
}

func (s *Store) DeleteProfile(ctx context.Context, owner string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM agent_profiles WHERE owner = $1`, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
