package mcpserver

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"analyst-alchemist/internal/app/arena"
	"analyst-alchemist/internal/market"
	"analyst-alchemist/internal/wizard"
)

func (s *Server) registerArenaTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_leaderboard",
			mcp.WithDescription("Get the ranked roster of a dashboard session"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Dashboard session id")),
		),
		s.handleGetLeaderboard,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_equity_history",
			mcp.WithDescription("Get the most recent equity chart points of a dashboard session"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Dashboard session id")),
			mcp.WithNumber("limit", mcp.Description("Number of points, default 60, max 60")),
		),
		s.handleGetEquityHistory,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List agent workflows and their personas"),
		),
		s.handleListWorkflows,
	)
}

func (s *Server) dashboard(ctx context.Context, request mcp.CallToolRequest) (*arena.Dashboard, *mcp.CallToolResult) {
	sessionID, err := request.RequireString("session_id")
	if err != nil || strings.TrimSpace(sessionID) == "" {
		return nil, toolError("invalid_request", "session_id is required")
	}
	d, err := s.lookup(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return nil, mapDomainError(err)
	}
	return d, nil
}

func (s *Server) handleGetLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, errRes := s.dashboard(ctx, request)
	if errRes != nil {
		return errRes, nil
	}
	return toolResult(map[string]any{
		"session_id": d.ID,
		"items":      d.Market.Roster(),
	}), nil
}

func (s *Server) handleGetEquityHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, errRes := s.dashboard(ctx, request)
	if errRes != nil {
		return errRes, nil
	}
	limit := clampHistoryLimit(request.GetInt("limit", defaultHistoryLimit))
	points := d.Market.History(limit)
	if points == nil {
		points = []market.Point{}
	}
	return toolResult(map[string]any{
		"session_id": d.ID,
		"limit":      limit,
		"points":     points,
	}), nil
}

func (s *Server) handleListWorkflows(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(map[string]any{"items": wizard.Workflows()}), nil
}
