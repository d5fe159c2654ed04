package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"analyst-alchemist/internal/backend"
	"analyst-alchemist/internal/config"
	"analyst-alchemist/internal/profile"
)

const maxRequestBytes = 1 << 20

// Handler forwards auth, agent and activity calls to the backend and owns
// the login cookies.
type Handler struct {
	Backend *backend.Client
	Cookies CookieConfig
	Login   *KeyedLimiter
	Now     func() time.Time
}

func NewHandler(client *backend.Client, cfg config.ServerConfig) *Handler {
	return &Handler{
		Backend: client,
		Cookies: CookieConfig{
			Secure: cfg.CookieSecure,
			MaxAge: time.Duration(cfg.CookieMaxAgeMins) * time.Minute,
			Secret: sessionKey(cfg.SessionSecret),
		},
		Login: NewKeyedLimiter(cfg.LoginPerMinute, cfg.LoginBurst),
		Now:   time.Now,
	}
}

// Mount registers the proxy routes on r, which is expected to sit under /api.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/auth/register", h.passthrough("/auth/register", false))
	r.Get("/agents", h.passthrough("/agents", true))
	r.Post("/agents", h.passthrough("/agents", true))
	r.Delete("/agents/{agent_id}", h.handleDeleteAgent)
	r.Post("/v2/agents", h.passthrough("/api/v2/agents", true))
	r.Get("/v2/stock-activities", h.passthrough("/api/v2/stock-activities", true))
	r.Post("/v2/stock-activities/tasks", h.passthrough("/api/v2/stock-activities/tasks", true))
}

type loginReply struct {
	Username   string    `json:"username"`
	TokenType  string    `json:"token_type"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.Login != nil && !h.Login.Allow(clientIP(r)) {
		loginThrottledTotal.Add(1)
		writeErr(w, http.StatusTooManyRequests, "rate_limited")
		return
	}
	var creds backend.Credentials
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&creds); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_request")
		return
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		writeErr(w, http.StatusBadRequest, "invalid_request")
		return
	}
	body, _ := json.Marshal(creds)
	resp, ok := h.forward(w, r, http.MethodPost, "/auth/login", "", body)
	if !ok {
		return
	}
	if !resp.OK() {
		writeBackend(w, resp)
		return
	}
	tok, err := backend.DecodeToken(resp.Body)
	if err != nil {
		log.Error().Err(err).Msg("login reply missing token")
		writeErr(w, http.StatusBadGateway, "upstream_error")
		return
	}
	sess := profile.UserSession{Username: creds.Username, TokenType: tok.TokenType, LoggedInAt: h.now()}
	encoded, err := profile.EncodeSession(sess, h.Cookies.Secret)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal_error")
		return
	}
	h.Cookies.set(w, AccessTokenCookie, tok.AccessToken, true)
	h.Cookies.set(w, SessionCookie, encoded, false)
	writeJSON(w, http.StatusOK, loginReply{Username: sess.Username, TokenType: sess.TokenType, LoggedInAt: sess.LoggedInAt})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.Cookies.clear(w, AccessTokenCookie, true)
	h.Cookies.clear(w, SessionCookie, false)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "agent_id"))
	if id == "" {
		writeErr(w, http.StatusBadRequest, "invalid_request")
		return
	}
	h.passthrough("/agents/"+url.PathEscape(id), true)(w, r)
}

func (h *Handler) passthrough(path string, auth bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := Token(r)
		if auth && token == "" {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var body []byte
		if r.Method != http.MethodGet && r.Method != http.MethodDelete {
			b, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
			if err != nil {
				writeErr(w, http.StatusBadRequest, "invalid_request")
				return
			}
			if len(b) > 0 && !json.Valid(b) {
				writeErr(w, http.StatusBadRequest, "invalid_json")
				return
			}
			body = b
		}
		resp, ok := h.forward(w, r, r.Method, path, token, body)
		if !ok {
			return
		}
		writeBackend(w, resp)
	}
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request, method, path, token string, body []byte) (*backend.Response, bool) {
	forwardedTotal.Add(1)
	resp, err := h.Backend.Forward(r.Context(), method, path, r.URL.Query(), token, body)
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) {
			log.Warn().Err(err).Str("path", path).Msg("backend unavailable")
		}
		writeErr(w, http.StatusBadGateway, "upstream_error")
		return nil, false
	}
	return resp, true
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

// writeBackend relays the backend status and its normalised body.
func writeBackend(w http.ResponseWriter, resp *backend.Response) {
	if resp.Status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}
