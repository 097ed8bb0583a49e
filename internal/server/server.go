package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/localrivet/gomcp/server"

	"github.com/localrivet/traktmcp/internal/errortypes"
	"github.com/localrivet/traktmcp/internal/tools"
)

// ServerName is the name announced to MCP clients.
const ServerName = "trakt"

// toolLister is implemented by the gomcp server returned from
// server.NewServer. It is not part of the server.Server interface.
type toolLister interface {
	GetTools() map[string]*server.Tool
}

// MCPToolServer implements the ToolServer interface on top of the tool
// dispatch table.
type MCPToolServer struct {
	table     *tools.Table
	mcpServer server.Server

	mu  sync.RWMutex
	ctx context.Context
}

var _ ToolServer = (*MCPToolServer)(nil)

// NewToolServer creates a new MCPToolServer instance.
func NewToolServer(table *tools.Table) *MCPToolServer {
	return &MCPToolServer{
		table: table,
		ctx:   context.Background(),
	}
}

// Initialize registers every tool of the dispatch table with the MCP server.
func (s *MCPToolServer) Initialize() error {
	slog.Info("Initializing MCP Tool Server")

	if s.table == nil {
		return errortypes.ConfigurationError(ErrMissingDependencies, "server initialization failed")
	}

	srv, err := s.Register(server.NewServer(ServerName))
	if err != nil {
		return err
	}

	s.mcpServer = srv
	slog.Info("MCP Tool Server initialized successfully", "tool_count", len(s.table.Names()))
	return nil
}

// Register adds every tool of the dispatch table to srv and returns the
// extended server. Hosts embedding traktmcp call it on their own server,
// before serving. Arguments reach the dispatch table exactly as the client
// sent them and tools/list advertises the table's own schemas.
func (s *MCPToolServer) Register(srv server.Server) (server.Server, error) {
	if s.table == nil {
		return nil, errortypes.ConfigurationError(ErrMissingDependencies, "cannot register tools")
	}

	defs := s.table.Definitions()
	for _, def := range defs {
		srv = srv.Tool(def.Name, def.Description, s.bind(def.Name))
	}

	lister, ok := srv.(toolLister)
	if !ok {
		slog.Warn("MCP server does not expose its tools; advertising generic schemas", "server_type", fmt.Sprintf("%T", srv))
		return srv, nil
	}
	registered := lister.GetTools()
	for _, def := range defs {
		tool, ok := registered[def.Name]
		if !ok {
			return nil, errortypes.ConfigurationError(nil, fmt.Sprintf("tool %s was not registered", def.Name))
		}
		inputSchema, err := def.InputSchema()
		if err != nil {
			return nil, errortypes.ConfigurationError(err, fmt.Sprintf("invalid schema for tool %s", def.Name))
		}
		tool.Schema = inputSchema
	}
	return srv, nil
}

// Start serves MCP over stdio. It returns when stdin closes or ctx is done.
func (s *MCPToolServer) Start(ctx context.Context) error {
	if s.mcpServer == nil {
		return errortypes.ConfigurationError(ErrServerNotInitialized, "cannot start server")
	}

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	slog.Info("Starting MCP Tool Server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.mcpServer.AsStdio().Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutdown requested", "reason", context.Cause(ctx))
		return nil
	}
}

// Stop gracefully shuts down the MCP server.
func (s *MCPToolServer) Stop() error {
	slog.Info("Stopping MCP Tool Server")
	// The stdio transport exits when stdin is closed
	return nil
}

// Call dispatches one tool call and returns the MCP payload.
func (s *MCPToolServer) Call(name string, args map[string]any) tools.ToolResponse {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()

	slog.Debug("Processing tool call", "tool", name)
	return toResponse(s.table.Invoke(ctx, name, args))
}

// bind adapts the dispatch table to a gomcp handler. The raw argument map
// keeps gomcp from coercing values into Go types before validation.
func (s *MCPToolServer) bind(name string) func(*server.Context, map[string]interface{}) (tools.ToolResponse, error) {
	return func(_ *server.Context, args map[string]interface{}) (tools.ToolResponse, error) {
		return s.Call(name, args), nil
	}
}
