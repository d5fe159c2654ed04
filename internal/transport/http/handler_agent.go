package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"analyst-alchemist/internal/app/agent"
	"analyst-alchemist/internal/proxy"
)

type AgentHandlers struct {
	agents *agent.Service
}

func NewAgentHandlers(agents *agent.Service) *AgentHandlers {
	return &AgentHandlers{agents: agents}
}

func (h *AgentHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		p, err := h.agents.Get(d)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (h *AgentHandlers) Reconfigure() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		var in agent.ReconfigureInput
		if err := decodeBody(r, &in); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		p, err := h.agents.Reconfigure(r.Context(), d, in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (h *AgentHandlers) UpdatePrompt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := decodeBody(r, &req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		p, err := h.agents.UpdatePrompt(r.Context(), d, agent.PromptInput{
			Capability: chi.URLParam(r, "capability"),
			Prompt:     req.Prompt,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (h *AgentHandlers) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		if err := h.agents.Delete(r.Context(), d, proxy.Token(r)); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
