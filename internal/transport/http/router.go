package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	appagent "analyst-alchemist/internal/app/agent"
	"analyst-alchemist/internal/app/arena"
	"analyst-alchemist/internal/backend"
	"analyst-alchemist/internal/config"
	"analyst-alchemist/internal/mcpserver"
	"analyst-alchemist/internal/proxy"
)

// NewRouter wires the backend proxy, the dashboard session API, the MCP
// endpoint and the admin surface. pinger may be nil.
func NewRouter(cfg config.ServerConfig, mgr *arena.Manager, client *backend.Client, pinger Pinger) *chi.Mux {
	agentSvc := appagent.NewService(mgr.Repository(), client)
	arenaSvc := arena.NewService(mgr, client)
	proxyHandler := proxy.NewHandler(client, cfg)
	mcpSrv := mcpserver.New(mgr, proxyHandler.Cookies)

	sessionHandlers := NewSessionHandlers(mgr, arenaSvc, proxyHandler.Cookies)
	wizardHandlers := NewWizardHandlers(mgr.Config().Backtest(), agentSvc)
	agentHandlers := NewAgentHandlers(agentSvc)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(CORSMiddleware(cfg.CORSOrigins))

	r.With(APILogMiddleware()).Get("/healthz", HealthHandler(pinger))
	r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", mcpSrv.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		proxyHandler.Mount(r)
		r.Get("/workflows", WorkflowsHandler())

		r.Post("/sessions", sessionHandlers.Open())
		r.Route("/sessions/{session_id}", func(r chi.Router) {
			r.Use(DashboardMiddleware(mgr))
			r.Post("/logout", sessionHandlers.Logout())

			r.Group(func(r chi.Router) {
				r.Use(OwnerMiddleware(proxyHandler.Cookies))
				r.Delete("/", sessionHandlers.Close())
				r.Get("/state", sessionHandlers.State())
				r.Get("/events", EventsSSEHandler())
				r.Post("/join", sessionHandlers.Join())
				r.Post("/withdraw", sessionHandlers.Withdraw())
				r.Get("/notifications", sessionHandlers.Notifications())
				r.Delete("/notifications", sessionHandlers.ClearNotifications())
				r.Delete("/notifications/{notification_id}", sessionHandlers.DismissNotification())

				r.Post("/wizard", wizardHandlers.Start())
				r.Get("/wizard", wizardHandlers.Get())
				r.Patch("/wizard", wizardHandlers.Patch())
				r.Post("/wizard/next", wizardHandlers.Next())
				r.Post("/wizard/back", wizardHandlers.Back())
				r.Post("/wizard/skip", wizardHandlers.Skip())
				r.Post("/wizard/backtest", wizardHandlers.Backtest())
				r.Post("/wizard/deploy", wizardHandlers.Deploy())

				r.Get("/agent", agentHandlers.Get())
				r.Put("/agent", agentHandlers.Reconfigure())
				r.Delete("/agent", agentHandlers.Delete())
				r.Put("/agent/prompts/{capability}", agentHandlers.UpdatePrompt())
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 48)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
