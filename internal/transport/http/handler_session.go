package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"analyst-alchemist/internal/app/arena"
	"analyst-alchemist/internal/proxy"
	"analyst-alchemist/internal/store"
)

const maxBodyBytes = 1 << 20

type SessionHandlers struct {
	manager *arena.Manager
	arena   *arena.Service
	cookies proxy.CookieConfig
}

func NewSessionHandlers(mgr *arena.Manager, svc *arena.Service, cookies proxy.CookieConfig) *SessionHandlers {
	return &SessionHandlers{manager: mgr, arena: svc, cookies: cookies}
}

// decodeBody reads an optional JSON body; an empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type openSessionRequest struct {
	ClientID string `json:"client_id"`
}

func (h *SessionHandlers) Open() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req openSessionRequest
		if err := decodeBody(r, &req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		var in arena.OpenInput
		if sess, ok := h.cookies.Session(r); ok {
			in.Username = sess.Username
			in.Owner = store.UserOwner(sess.Username)
		} else if id := strings.TrimSpace(req.ClientID); id != "" {
			in.Owner = store.ClientOwner(id)
		}
		d, err := h.manager.Open(r.Context(), in)
		if err != nil {
			if errors.Is(err, arena.ErrManagerShutdown) {
				WriteHTTPError(w, http.StatusServiceUnavailable, "shutting_down")
				return
			}
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, d.State())
	}
}

func (h *SessionHandlers) Close() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.manager.Close(chi.URLParam(r, "session_id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *SessionHandlers) State() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		writeJSON(w, http.StatusOK, d.State())
	}
}

func (h *SessionHandlers) Join() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		res, err := h.arena.Join(r.Context(), d, proxy.Token(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *SessionHandlers) Withdraw() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		entry, err := h.arena.Withdraw(r.Context(), d)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"withdrawn": entry})
	}
}

func (h *SessionHandlers) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		h.arena.Logout(r.Context(), d)
		writeJSON(w, http.StatusOK, d.State())
	}
}

func (h *SessionHandlers) Notifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"active":  d.Notices.Active(),
			"history": d.Notices.History(),
		})
	}
}

func (h *SessionHandlers) DismissNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		if !d.Notices.Dismiss(chi.URLParam(r, "notification_id")) {
			WriteHTTPError(w, http.StatusNotFound, "notification_not_found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *SessionHandlers) ClearNotifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := DashboardFromContext(r.Context())
		d.Notices.ClearHistory()
		w.WriteHeader(http.StatusNoContent)
	}
}
