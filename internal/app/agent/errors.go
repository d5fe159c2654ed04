package agent

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrJoinedLocked   = errors.New("agent_in_competition")
	ErrAuthRequired   = errors.New("auth_required")
)
