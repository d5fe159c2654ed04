package httptransport

import (
	"errors"
	"net/http"

	appagent "analyst-alchemist/internal/app/agent"
	"analyst-alchemist/internal/app/arena"
	"analyst-alchemist/internal/backend"
	"analyst-alchemist/internal/market"
	"analyst-alchemist/internal/profile"
	"analyst-alchemist/internal/wizard"

	"github.com/rs/zerolog/log"
)

var (
	notFoundErrors = []error{
		arena.ErrSessionNotFound,
		arena.ErrNoAgent,
		arena.ErrWizardNotStarted,
	}
	conflictErrors = []error{
		appagent.ErrJoinedLocked,
		market.ErrAlreadyJoined,
		market.ErrNotJoined,
		market.ErrNameTaken,
		wizard.ErrWrongStep,
		wizard.ErrAtFirstStep,
		wizard.ErrAtLastStep,
		wizard.ErrBacktestNotFinished,
		wizard.ErrDeployed,
		wizard.ErrDeployInProgress,
	}
	unauthorizedErrors = []error{
		appagent.ErrAuthRequired,
	}
	unprocessableErrors = []error{
		wizard.ErrNameRequired,
		wizard.ErrWorkflowRequired,
		wizard.ErrPersonaRequired,
		wizard.ErrUnknownWorkflow,
		wizard.ErrUnknownPersona,
	}
	badRequestErrors = []error{
		arena.ErrInvalidRequest,
		appagent.ErrInvalidRequest,
		profile.ErrInvalidProfile,
		profile.ErrInvalidStat,
		market.ErrInvalidName,
	}
)

func matchSentinel(err error, set []error) (error, bool) {
	for _, s := range set {
		if errors.Is(err, s) {
			return s, true
		}
	}
	return nil, false
}

// writeDomainError maps service errors to status codes. Sentinel errors use
// their own text as the error code; backend failures add the backend's
// message as detail.
func writeDomainError(w http.ResponseWriter, err error) {
	metricHTTPErrorsTotal.Add(1)
	for _, group := range []struct {
		set    []error
		status int
	}{
		{unauthorizedErrors, http.StatusUnauthorized},
		{notFoundErrors, http.StatusNotFound},
		{conflictErrors, http.StatusConflict},
		{unprocessableErrors, http.StatusUnprocessableEntity},
		{badRequestErrors, http.StatusBadRequest},
	} {
		if s, ok := matchSentinel(err, group.set); ok {
			WriteHTTPError(w, group.status, s.Error())
			return
		}
	}

	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":           "upstream_error",
			"detail":          apiErr.Detail(),
			"upstream_status": apiErr.Status,
		})
	case errors.Is(err, backend.ErrUnavailable),
		errors.Is(err, backend.ErrMissingField),
		errors.Is(err, backend.ErrNoActivity):
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "upstream_error", "detail": err.Error()})
	default:
		log.Error().Err(err).Msg("unhandled request error")
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
