package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"analyst-alchemist/internal/wizard"
)

// Pinger reports storage reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				log.Warn().Err(err).Msg("health check: storage unreachable")
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "storage_unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func WorkflowsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"workflows": wizard.Workflows()})
	}
}
