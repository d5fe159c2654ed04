package store

import (
	"context"
	"errors"

	"analyst-alchemist/internal/profile"
)

var ErrNotFound = errors.New("not_found")

// Repository persists one agent profile per owner. Owners are either
// "user:<username>" or "client:<id>" keys chosen by the caller.
type Repository interface {
	LoadProfile(ctx context.Context, owner string) (profile.Profile, error)
	SaveProfile(ctx context.Context, owner string, p profile.Profile) error
	DeleteProfile(ctx context.Context, owner string) error
}

func UserOwner(username string) string { return "user:" + username }

func ClientOwner(clientID string) string { return "client:" + clientID }
