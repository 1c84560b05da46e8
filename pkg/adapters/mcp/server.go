package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/domain"
)

// HistoryResponse is the navigation state of one surface.
type HistoryResponse struct {
	Surface domain.SurfaceID `json:"surface" jsonschema_description:"The surface the history belongs to"`
	Entries []domain.PageRef `json:"entries" jsonschema_description:"Visited pages, oldest first"`
	Index   int              `json:"index" jsonschema_description:"Position of the current page in entries"`
	Current domain.PageRef   `json:"current" jsonschema_description:"The page the surface is on"`
}

// DispatchResponse reports a dispatched command.
type DispatchResponse struct {
	Kind    domain.CommandKind `json:"kind" jsonschema_description:"The command that ran"`
	Drained bool               `json:"drained" jsonschema_description:"Whether deferred page assignments were applied"`
}

// RecomputeResponse lists the feedbacks recomputed after a variable change.
type RecomputeResponse struct {
	Recomputed []string `json:"recomputed" jsonschema_description:"Ids of the recomputed feedbacks"`
}

// Engine defines the interface required by the MCP server to interact with Switchboard.
type Engine interface {
	Dispatch(ctx context.Context, cmd domain.Command) error
	Navigate(ctx context.Context, surface domain.SurfaceID, target domain.PageRef) (*domain.History, error)
	Drain(ctx context.Context) error
	VariablesChanged(ctx context.Context, changed, removed []domain.VariableRef) ([]string, error)
	History(ctx context.Context, surface domain.SurfaceID) (*domain.History, error)
	Surfaces(ctx context.Context) ([]domain.SurfaceID, error)
}

var _ Engine = (*switchboard.Engine)(nil)

// Server wraps the Switchboard Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("switchboard-mcp", strings.TrimSpace(switchboard.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: dispatch_command
	dispatchTool := mcp.NewTool("dispatch_command",
		mcp.WithDescription("Run one controller command (set_page, button_press, panic, ...) and apply the page changes it decides."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Command kind, e.g. set_page")),
		mcp.WithString("options", mcp.Description("JSON object of command options")),
		mcp.WithString("extras", mcp.Description("JSON object describing the triggering press: page, bank, device_id")),
		mcp.WithOutputSchema[DispatchResponse](),
	)
	s.mcpServer.AddTool(dispatchTool, mcp.NewStructuredToolHandler(s.handleDispatch))

	// TOOL: navigate
	navigateTool := mcp.NewTool("navigate",
		mcp.WithDescription("Move a surface to a page, or back/forward through its history."),
		mcp.WithString("surface", mcp.Required(), mcp.Description("Surface id")),
		mcp.WithString("page", mcp.Required(), mcp.Description("Target page, \"back\" or \"forward\"")),
		mcp.WithOutputSchema[HistoryResponse](),
	)
	s.mcpServer.AddTool(navigateTool, mcp.NewStructuredToolHandler(s.handleNavigate))

	// TOOL: get_history
	historyTool := mcp.NewTool("get_history",
		mcp.WithDescription("Get the navigation history of a surface."),
		mcp.WithString("surface", mcp.Required(), mcp.Description("Surface id")),
		mcp.WithOutputSchema[HistoryResponse](),
	)
	s.mcpServer.AddTool(historyTool, mcp.NewStructuredToolHandler(s.handleGetHistory))

	// TOOL: variables_changed
	changedTool := mcp.NewTool("variables_changed",
		mcp.WithDescription("Report changed variables and recompute the feedbacks that read them."),
		mcp.WithString("changed", mcp.Required(), mcp.Description("JSON array of \"namespace:name\" references")),
		mcp.WithString("removed", mcp.Description("JSON array of removed \"namespace:name\" references")),
		mcp.WithOutputSchema[RecomputeResponse](),
	)
	s.mcpServer.AddTool(changedTool, mcp.NewStructuredToolHandler(s.handleVariablesChanged))
}

func historyResponse(surface domain.SurfaceID, h *domain.History) HistoryResponse {
	return HistoryResponse{
		Surface: surface,
		Entries: h.Entries,
		Index:   h.Index,
		Current: h.Current(),
	}
}

func (s *Server) handleDispatch(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DispatchResponse, error) {
	kind, _ := args["kind"].(string)
	cmd := domain.Command{Kind: domain.CommandKind(kind)}

	if optStr, ok := args["options"].(string); ok && optStr != "" {
		if err := json.Unmarshal([]byte(optStr), &cmd.Options); err != nil {
			return DispatchResponse{}, fmt.Errorf("invalid options: %w", err)
		}
	}
	if extStr, ok := args["extras"].(string); ok && extStr != "" {
		cmd.Extras = &domain.ContextExtras{}
		if err := json.Unmarshal([]byte(extStr), cmd.Extras); err != nil {
			return DispatchResponse{}, fmt.Errorf("invalid extras: %w", err)
		}
	}

	if err := s.engine.Dispatch(ctx, cmd); err != nil {
		s.logRejected("MCP Dispatch: Command rejected", err, "command", kind)
		return DispatchResponse{}, fmt.Errorf("dispatch failed: %w", err)
	}
	if err := s.engine.Drain(ctx); err != nil {
		s.logger.Error("MCP Dispatch: Deferred work failed", "error", err)
		return DispatchResponse{Kind: cmd.Kind}, fmt.Errorf("deferred work failed: %w", err)
	}
	return DispatchResponse{Kind: cmd.Kind, Drained: true}, nil
}

// logRejected logs a refused request. Resolution failures were already
// reported by the engine.
func (s *Server) logRejected(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if errors.Is(err, domain.ErrUnresolvedReference) || errors.Is(err, domain.ErrSurfaceUnresolved) {
		s.logger.Debug(msg, args...)
		return
	}
	s.logger.Warn(msg, args...)
}

func (s *Server) handleNavigate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (HistoryResponse, error) {
	surface, _ := args["surface"].(string)
	page, _ := args["page"].(string)

	h, err := s.engine.Navigate(ctx, domain.SurfaceID(surface), domain.PageRef(page))
	if err != nil {
		return HistoryResponse{}, fmt.Errorf("navigate failed: %w", err)
	}
	if err := s.engine.Drain(ctx); err != nil {
		s.logger.Error("MCP Navigate: Deferred work failed", "error", err)
		return HistoryResponse{}, fmt.Errorf("deferred work failed: %w", err)
	}
	return historyResponse(domain.SurfaceID(surface), h), nil
}

func (s *Server) handleGetHistory(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (HistoryResponse, error) {
	surface, _ := args["surface"].(string)

	h, err := s.engine.History(ctx, domain.SurfaceID(surface))
	if err != nil {
		return HistoryResponse{}, fmt.Errorf("history failed: %w", err)
	}
	return historyResponse(domain.SurfaceID(surface), h), nil
}

func parseRefs(raw string) ([]domain.VariableRef, error) {
	if raw == "" {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, err
	}
	refs := make([]domain.VariableRef, 0, len(names))
	for _, n := range names {
		ref, err := domain.ParseVariableRef(n)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *Server) handleVariablesChanged(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RecomputeResponse, error) {
	changedStr, _ := args["changed"].(string)
	removedStr, _ := args["removed"].(string)

	changed, err := parseRefs(changedStr)
	if err != nil {
		return RecomputeResponse{}, fmt.Errorf("invalid changed: %w", err)
	}
	removed, err := parseRefs(removedStr)
	if err != nil {
		return RecomputeResponse{}, fmt.Errorf("invalid removed: %w", err)
	}

	ids, err := s.engine.VariablesChanged(ctx, changed, removed)
	if err != nil {
		return RecomputeResponse{}, fmt.Errorf("recompute failed: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return RecomputeResponse{Recomputed: ids}, nil
}

func (s *Server) surfacesJSON(ctx context.Context) (string, error) {
	surfaces, err := s.engine.Surfaces(ctx)
	if err != nil {
		return "", err
	}
	out := make([]HistoryResponse, 0, len(surfaces))
	for _, surface := range surfaces {
		h, err := s.engine.History(ctx, surface)
		if err != nil {
			continue
		}
		out = append(out, historyResponse(surface, h))
	}
	jsonBytes, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(jsonBytes), nil
}

func (s *Server) registerResources() {
	// EXPOSE: switchboard://surfaces
	s.mcpServer.AddResource(mcp.NewResource("switchboard://surfaces", "Navigation history of every surface",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.surfacesJSON(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list surfaces: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "switchboard://surfaces",
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	})
}
