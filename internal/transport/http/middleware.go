package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"

	"analyst-alchemist/internal/app/arena"
	"analyst-alchemist/internal/logging"
	"analyst-alchemist/internal/proxy"
)

type dashboardContextKey struct{}

func DashboardFromContext(ctx context.Context) (*arena.Dashboard, bool) {
	d, ok := ctx.Value(dashboardContextKey{}).(*arena.Dashboard)
	return d, ok
}

func APILogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.SchemaECS,
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				rc := chi.RouteContext(req.Context())
				route := req.URL.Path
				if rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				return []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("route", route),
					slog.String("session_id", chi.URLParam(req, "session_id")),
				}
			},
		},
	)
}

func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID", "X-Admin-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// DashboardMiddleware resolves {session_id} to a live dashboard. The
// dashboard holds no credentials; handlers read the bearer token from each
// request.
func DashboardMiddleware(mgr *arena.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := mgr.Get(chi.URLParam(r, "session_id"))
			if err != nil {
				WriteHTTPError(w, http.StatusNotFound, "session_not_found")
				return
			}
			ctx := context.WithValue(r.Context(), dashboardContextKey{}, d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OwnerMiddleware admits requests on a user-owned dashboard only when they
// carry a signed session for that same user. Anonymous dashboards are open
// to whoever holds the id.
func OwnerMiddleware(cookies proxy.CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, ok := DashboardFromContext(r.Context())
			if !ok {
				WriteHTTPError(w, http.StatusNotFound, "session_not_found")
				return
			}
			if username := d.Username(); username != "" {
				sess, ok := cookies.Session(r)
				if !ok || sess.Username != username {
					metricForbiddenTotal.Add(1)
					WriteHTTPError(w, http.StatusForbidden, "forbidden")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func AdminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" {
				if !CheckAdminAuth(r, adminKey) {
					w.WriteHeader(http.StatusUnauthorized)
					_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unauthorized"})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CheckAdminAuth(r *http.Request, adminKey string) bool {
	if v := r.Header.Get("X-Admin-Key"); v == adminKey {
		return true
	}
	auth := r.Header.Get("Authorization")
	prefix := "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):] == adminKey
	}
	return false
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"error": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
