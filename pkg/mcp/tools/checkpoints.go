package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/services"
)

// CheckpointToolDeps contains dependencies for checkpoint tools.
type CheckpointToolDeps struct {
	CheckpointService services.CheckpointService
	DatasourceService services.DatasourceService
	Logger            *zap.Logger
}

// RegisterCheckpointTools registers the checkpoint listing, run and datasource check tools.
func RegisterCheckpointTools(s *server.MCPServer, deps *CheckpointToolDeps) {
	registerListCheckpointsTool(s, deps)
	registerListCheckpointDatasourcesTool(s, deps)
	registerRunCheckpointTool(s, deps, "run_checkpoint_test",
		"Runs a checkpoint's test SQL against a datasource and evaluates its pass condition. "+
			"Returns status PASS, FAIL, NO_CONDITION or ERROR with the scalar result and rendered condition.",
		deps.CheckpointService.RunTest)
	registerRunCheckpointTool(s, deps, "run_checkpoint_detail",
		"Runs a checkpoint's detail SQL against a datasource and returns every row. "+
			"Returns status OK or ERROR.",
		deps.CheckpointService.RunDetail)
	if deps.DatasourceService != nil {
		registerCheckDatasourceTool(s, deps)
	}
}

type checkpointSummary struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	DBType      models.DBType   `json:"db_type"`
	Severity    models.Severity `json:"severity"`
	Description string          `json:"description,omitempty"`
	HasDetail   bool            `json:"has_detail"`
}

func registerListCheckpointsTool(s *server.MCPServer, deps *CheckpointToolDeps) {
	tool := mcp.NewTool(
		"list_checkpoints",
		mcp.WithDescription("Lists stored checkpoints with their engine and severity"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		checkpoints, err := deps.CheckpointService.List(ctx)
		if err != nil {
			return nil, err
		}

		summaries := make([]checkpointSummary, 0, len(checkpoints))
		for _, cp := range checkpoints {
			summaries = append(summaries, checkpointSummary{
				ID:          cp.ID,
				Name:        cp.Name,
				DBType:      cp.DBType,
				Severity:    cp.Severity,
				Description: cp.Description,
				HasDetail:   cp.SQLDetail != "",
			})
		}
		return jsonResult(map[string]any{"checkpoints": summaries})
	})
}

func registerListCheckpointDatasourcesTool(s *server.MCPServer, deps *CheckpointToolDeps) {
	tool := mcp.NewTool(
		"list_checkpoint_datasources",
		mcp.WithDescription("Lists the datasources a checkpoint can run against (same database engine)"),
		mcp.WithNumber("checkpoint_id", mcp.Required(), mcp.Description("Checkpoint ID")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		checkpointID, err := requireID(req, "checkpoint_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		datasources, err := deps.CheckpointService.ListDatasources(ctx, checkpointID)
		if err != nil {
			return lookupErrorResult(err)
		}
		if datasources == nil {
			datasources = []*models.Datasource{}
		}
		return jsonResult(map[string]any{"checkpoint_id": checkpointID, "datasources": datasources})
	})
}

type runFunc func(ctx context.Context, checkpointID, datasourceID int64) (*models.RunResult, error)

func registerRunCheckpointTool(s *server.MCPServer, deps *CheckpointToolDeps, name, description string, run runFunc) {
	tool := mcp.NewTool(
		name,
		mcp.WithDescription(description),
		mcp.WithNumber("checkpoint_id", mcp.Required(), mcp.Description("Checkpoint ID")),
		mcp.WithNumber("datasource_id", mcp.Required(), mcp.Description("Datasource ID (from list_checkpoint_datasources)")),
		// Setup SQL may write to staging tables on the target.
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		checkpointID, err := requireID(req, "checkpoint_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		datasourceID, err := requireID(req, "datasource_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		result, err := run(ctx, checkpointID, datasourceID)
		if err != nil {
			return lookupErrorResult(err)
		}

		deps.Logger.Debug("MCP checkpoint run",
			zap.String("tool", name),
			zap.String("run_id", result.RunID.String()),
			zap.String("status", string(result.Status)))
		return jsonResult(result)
	})
}

func registerCheckDatasourceTool(s *server.MCPServer, deps *CheckpointToolDeps) {
	tool := mcp.NewTool(
		"check_datasource",
		mcp.WithDescription("Logs in to a datasource and runs the engine's probe query"),
		mcp.WithNumber("datasource_id", mcp.Required(), mcp.Description("Datasource ID")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		datasourceID, err := requireID(req, "datasource_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		result, err := deps.DatasourceService.Check(ctx, datasourceID)
		if err != nil {
			return lookupErrorResult(err)
		}
		return jsonResult(result)
	})
}

// requireID reads a positive integer argument.
func requireID(req mcp.CallToolRequest, key string) (int64, error) {
	value, err := req.RequireFloat(key)
	if err != nil {
		return 0, err
	}
	if value <= 0 || value != float64(int64(value)) {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return int64(value), nil
}
