package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/services"
)

// Server wraps the mcp-go MCPServer and exposes checkpoint runs as tools.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(name, version string, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// ToolDeps holds what the built-in tools need.
type ToolDeps struct {
	Version           string
	Factory           datasource.DatasourceAdapterFactory
	CheckpointService services.CheckpointService
	DatasourceService services.DatasourceService
}

// RegisterTools registers the health and checkpoint tools.
func (s *Server) RegisterTools(deps ToolDeps) {
	tools.RegisterHealthTool(s.mcp, deps.Version, deps.Factory)
	tools.RegisterCheckpointTools(s.mcp, &tools.CheckpointToolDeps{
		CheckpointService: deps.CheckpointService,
		DatasourceService: deps.DatasourceService,
		Logger:            s.logger.Named("mcp-tools"),
	})
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
