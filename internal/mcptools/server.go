package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/roach88/featureplan/internal/engine"
)

// Tool is implemented by every tool in this package.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Tools returns every tool bound to eng, in registration order.
func Tools(eng *engine.Engine) []Tool {
	return []Tool{
		// --- Projects ---
		NewProjectCreateTool(eng),
		NewProjectListTool(eng),
		NewProjectDeleteTool(eng),
		NewProjectGraphTool(eng),
		NewProjectExportTool(eng),

		// --- Features ---
		NewFeatureCreateTool(eng),
		NewFeatureUpdateTool(eng),
		NewFeatureMoveTool(eng),
		NewFeatureDeleteTool(eng),
		NewFeatureListTool(eng),
		NewFeatureHistoryTool(eng),
		NewFeatureRestoreTool(eng),

		// --- Dependencies and layout ---
		NewDependencyAddTool(eng),
		NewDependencyRemoveTool(eng),
		NewPositionUpdateTool(eng),
	}
}

// NewServer creates an MCP server exposing eng through every tool.
// No business logic lives here, only wiring.
func NewServer(eng *engine.Engine, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"featureplan",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)
	for _, t := range Tools(eng) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

func serverInstructions() string {
	return `featureplan keeps a feature plan: projects, their features sorted into
three columns (essential, nice-to-have, future), and dependencies between
features of the same project.

Start with project_list or project_create. Features are added with
feature_create and moved between columns with feature_move. Every edit made
through feature_update is recorded; feature_history shows the entries and
feature_restore brings one back.

Use dependency_add to record that a feature needs another one. Cycles are
allowed but reported; project_graph shows the cycles and, when there are
none, an order in which the features can be built. project_export renders
the plan as Markdown.`
}
