package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/doosr/doosr/internal/services/mcp/domain"
	plannerdomain "github.com/doosr/doosr/internal/services/planner/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "Doosr MCP"
	serverVersion = "0.1.0"
)

type registrationModule struct {
	name     string
	register func(*mcp.Server)
}

func registrationModules(planner domain.Planner, scope domain.Scope, notify domain.ResourceUpdateNotifier) []registrationModule {
	return []registrationModule{
		{
			name: "day-tools",
			register: func(server *mcp.Server) {
				mcp.AddTool(server, domain.DayTreeTool(), domain.DayTreeHandler(planner, scope))
				mcp.AddTool(server, domain.AddItemTool(), domain.AddItemHandler(planner, scope, notify))
				mcp.AddTool(server, domain.SetItemStateTool(), domain.SetItemStateHandler(planner, scope, notify))
			},
		},
		{
			name: "calendar-tools",
			register: func(server *mcp.Server) {
				mcp.AddTool(server, domain.FixedDateTool(), domain.FixedDateHandler(scope))
				mcp.AddTool(server, domain.InterpolateTool(), domain.InterpolateHandler(scope))
			},
		},
		{
			name: "day-resources",
			register: func(server *mcp.Server) {
				server.AddResourceTemplate(domain.DayResourceTemplate(), domain.DayResourceHandler(planner, scope))
			},
		},
	}
}

// Server hosts the MCP server for one user.
type Server struct {
	mcpServer *mcp.Server
	scope     domain.Scope
}

// New registers every tool and resource acting as scope.UserID.
func New(planner domain.Planner, scope domain.Scope) (*Server, error) {
	if planner == nil {
		return nil, fmt.Errorf("planner is required")
	}
	scope.UserID = strings.TrimSpace(scope.UserID)
	if scope.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	server := &Server{scope: scope}
	server.mcpServer = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, &mcp.ServerOptions{
		CompletionHandler:  server.completionHandler,
		SubscribeHandler:   resourceSubscribeHandler,
		UnsubscribeHandler: resourceUnsubscribeHandler,
	})
	notify := func(ctx context.Context, uri string) {
		if err := server.mcpServer.ResourceUpdated(context.WithoutCancel(ctx), &mcp.ResourceUpdatedNotificationParams{URI: uri}); err != nil {
			log.Printf("mcp resource updated notify failed: uri=%s err=%v", uri, err)
		}
	}
	for _, module := range registrationModules(planner, scope, notify) {
		module.register(server.mcpServer)
	}
	return server, nil
}

// Serve runs the server on transport until the client disconnects or ctx
// ends. Cancellation is not an error.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// completionHandler offers yesterday, today and tomorrow for date
// arguments, filtered by the typed prefix.
func (s *Server) completionHandler(_ context.Context, req *mcp.CompleteRequest) (*mcp.CompleteResult, error) {
	result := &mcp.CompleteResult{Completion: mcp.CompletionResultDetails{Values: []string{}}}
	if req == nil || req.Params == nil || req.Params.Argument.Name != "date" {
		return result, nil
	}
	today, err := s.scope.Date("")
	if err != nil {
		return result, nil
	}
	day, _ := time.Parse(plannerdomain.DateLayout, today)
	for _, offset := range []int{0, -1, 1} {
		value := day.AddDate(0, 0, offset).Format(plannerdomain.DateLayout)
		if strings.HasPrefix(value, req.Params.Argument.Value) {
			result.Completion.Values = append(result.Completion.Values, value)
		}
	}
	result.Completion.Total = len(result.Completion.Values)
	return result, nil
}

func resourceSubscribeHandler(_ context.Context, req *mcp.SubscribeRequest) error {
	if req == nil || req.Params == nil || strings.TrimSpace(req.Params.URI) == "" {
		return fmt.Errorf("resource uri is required")
	}
	return nil
}

func resourceUnsubscribeHandler(_ context.Context, req *mcp.UnsubscribeRequest) error {
	if req == nil || req.Params == nil || strings.TrimSpace(req.Params.URI) == "" {
		return fmt.Errorf("resource uri is required")
	}
	return nil
}
