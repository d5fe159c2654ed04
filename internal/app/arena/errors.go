package arena

import "errors"

var (
	ErrInvalidRequest   = errors.New("invalid_request")
	ErrSessionNotFound  = errors.New("session_not_found")
	ErrNoAgent          = errors.New("no_agent")
	ErrWizardNotStarted = errors.New("wizard_not_started")
	ErrManagerShutdown  = errors.New("manager_shutdown")
)
