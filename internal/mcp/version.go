package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/fund-breakdown/internal/config"
)

// versionInfo holds version fields for one component.
type versionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// HealthChecker reports whether the analysis service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// VersionTool returns the mcp.Tool definition for get_version.
func VersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get fund-breakdown version and analysis service status. Use this to verify connectivity."),
	)
}

// VersionToolHandler reports the portal version and whether the analysis
// service answers.
func VersionToolHandler(health HealthChecker) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := map[string]any{
			"fund_breakdown": versionInfo{
				Version: config.GetVersion(),
				Build:   config.GetBuild(),
				Commit:  config.GetGitCommit(),
			},
		}

		status := "unknown"
		if health != nil {
			status = "ok"
			if err := health.Health(ctx); err != nil {
				status = "down"
			}
		}
		result["analysis_service"] = status

		out, err := json.Marshal(result)
		if err != nil {
			return errorResult("failed to marshal version info"), nil
		}
		return textResult(string(out)), nil
	}
}
