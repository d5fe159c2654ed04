package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"analyst-alchemist/internal/app/arena"
	"analyst-alchemist/internal/proxy"
)

var errForbidden = errors.New("forbidden")

type callerKey struct{}

type Server struct {
	manager *arena.Manager
	cookies proxy.CookieConfig

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

// New serves read-only dashboard tools. cookies verifies the caller's session
// so user-owned dashboards are only visible to their user.
func New(mgr *arena.Manager, cookies proxy.CookieConfig) *Server {
	mcpSrv := server.NewMCPServer(
		"analyst-alchemist",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		manager:   mgr,
		cookies:   cookies,
		mcpServer: mcpSrv,
	}
	s.httpServer = server.NewStreamableHTTPServer(mcpSrv,
		server.WithStateLess(true),
		server.WithDisableStreaming(true),
		server.WithHTTPContextFunc(s.withCaller),
	)
	s.registerArenaTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) withCaller(ctx context.Context, r *http.Request) context.Context {
	if sess, ok := s.cookies.Session(r); ok {
		return context.WithValue(ctx, callerKey{}, sess.Username)
	}
	return ctx
}

// lookup resolves a dashboard the caller may read.
func (s *Server) lookup(ctx context.Context, sessionID string) (*arena.Dashboard, error) {
	d, err := s.manager.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if owner := d.Username(); owner != "" {
		if caller, _ := ctx.Value(callerKey{}).(string); caller != owner {
			return nil, errForbidden
		}
	}
	return d, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"dashboard://{session_id}/state",
			"dashboard_state",
			mcp.WithTemplateDescription("Leaderboard, chart window and agent of one dashboard session"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := string(request.Params.URI)
			if !strings.HasPrefix(raw, "dashboard://") || !strings.HasSuffix(raw, "/state") {
				return nil, nil
			}
			sessionID := strings.TrimSuffix(strings.TrimPrefix(raw, "dashboard://"), "/state")
			if sessionID == "" {
				return nil, nil
			}
			d, err := s.lookup(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(d.State())
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}
