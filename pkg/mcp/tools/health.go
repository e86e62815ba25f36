package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
)

type healthResult struct {
	Status  string   `json:"status"`
	Version string   `json:"version"`
	Engines []string `json:"engines"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and the engines that can be run.
func RegisterHealthTool(s *server.MCPServer, version string, factory datasource.DatasourceAdapterFactory) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and supported database engines"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		engines := []string{}
		if factory != nil {
			for _, info := range factory.ListTypes() {
				engines = append(engines, string(info.Type))
			}
		}

		result, err := json.Marshal(healthResult{Status: "ok", Version: version, Engines: engines})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
