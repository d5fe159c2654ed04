package httptransport

import (
	"net/http"
	"time"

	"analyst-alchemist/internal/app/agent"
	"analyst-alchemist/internal/proxy"
	"analyst-alchemist/internal/wizard"
)

type WizardHandlers struct {
	backtest time.Duration
	agents   *agent.Service
}

func NewWizardHandlers(backtest time.Duration, agents *agent.Service) *WizardHandlers {
	return &WizardHandlers{backtest: backtest, agents: agents}
}

type wizardPatch struct {
	Name       *string                `json:"name"`
	WorkflowID *string                `json:"workflow_id"`
	PersonaID  *string                `json:"persona_id"`
	Knowledge  []wizard.KnowledgeFile `json:"knowledge"`
}

func (h *WizardHandlers) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		wz := d.StartWizard(h.backtest)
		writeJSON(w, http.StatusCreated, wz.State())
	}
}

func (h *WizardHandlers) Get() http.HandlerFunc {
	return h.with(func(wz *wizard.Wizard, _ *http.Request) (wizard.State, error) {
		return wz.State(), nil
	})
}

// Patch applies the present fields in order name, workflow, persona,
// knowledge; the first rejected field aborts the rest.
func (h *WizardHandlers) Patch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wizardPatch
		if err := decodeBody(r, &req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		h.with(func(wz *wizard.Wizard, _ *http.Request) (wizard.State, error) {
			st := wz.State()
			var err error
			if req.Name != nil {
				if st, err = wz.SetName(*req.Name); err != nil {
					return st, err
				}
			}
			if req.WorkflowID != nil {
				if st, err = wz.SelectWorkflow(*req.WorkflowID); err != nil {
					return st, err
				}
			}
			if req.PersonaID != nil {
				if st, err = wz.SelectPersona(*req.PersonaID); err != nil {
					return st, err
				}
			}
			if len(req.Knowledge) > 0 {
				if st, err = wz.AddKnowledge(req.Knowledge...); err != nil {
					return st, err
				}
			}
			return st, nil
		})(w, r)
	}
}

func (h *WizardHandlers) Next() http.HandlerFunc {
	return h.with(func(wz *wizard.Wizard, _ *http.Request) (wizard.State, error) { return wz.Next() })
}

func (h *WizardHandlers) Back() http.HandlerFunc {
	return h.with(func(wz *wizard.Wizard, _ *http.Request) (wizard.State, error) { return wz.Back() })
}

func (h *WizardHandlers) Skip() http.HandlerFunc {
	return h.with(func(wz *wizard.Wizard, _ *http.Request) (wizard.State, error) { return wz.SkipKnowledge() })
}

func (h *WizardHandlers) Backtest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		wz, err := d.Wizard()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		st, err := wz.StartBacktest()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, st)
	}
}

func (h *WizardHandlers) Deploy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		p, err := h.agents.Deploy(r.Context(), d, proxy.Token(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func (h *WizardHandlers) with(fn func(*wizard.Wizard, *http.Request) (wizard.State, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		wz, err := d.Wizard()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		st, err := fn(wz, r)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
