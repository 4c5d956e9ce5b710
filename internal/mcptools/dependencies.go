package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roach88/featureplan/internal/engine"
	"github.com/roach88/featureplan/internal/graph"
	"github.com/roach88/featureplan/internal/model"
)

// DependencyAddTool handles the dependency_add MCP tool.
type DependencyAddTool struct {
	eng *engine.Engine
}

// NewDependencyAddTool creates a DependencyAddTool.
func NewDependencyAddTool(eng *engine.Engine) *DependencyAddTool {
	return &DependencyAddTool{eng: eng}
}

// Definition returns the MCP tool definition for dependency_add.
func (t *DependencyAddTool) Definition() mcp.Tool {
	return mcp.NewTool("dependency_add",
		mcp.WithDescription(
			"Record that one feature depends on another feature of the same project. "+
				"Cycles are accepted but reported as warnings.",
		),
		mcp.WithString("feature_id",
			mcp.Required(),
			mcp.Description("The dependent feature"),
		),
		mcp.WithString("depends_on_id",
			mcp.Required(),
			mcp.Description("The feature it depends on"),
		),
	)
}

// Handle processes the dependency_add tool call.
func (t *DependencyAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	featureID := req.GetString("feature_id", "")
	dependsOnID := req.GetString("depends_on_id", "")
	if featureID == "" {
		return mcp.NewToolResultError("'feature_id' is required"), nil
	}
	if dependsOnID == "" {
		return mcp.NewToolResultError("'depends_on_id' is required"), nil
	}

	id, err := t.eng.AddDependency(ctx, model.Dependency{FeatureID: featureID, DependsOnID: dependsOnID})
	if err != nil {
		return engineError("add dependency", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dependency added: %s depends on %s\nID: %s", featureID, dependsOnID, id)

	f, _ := t.eng.Feature(featureID)
	warnings := graph.AnalyzeCycles(t.eng.BoardFeatures(f.ProjectID), t.eng.Snapshot().Dependencies)
	for _, w := range warnings {
		fmt.Fprintf(&b, "\nWarning: %s", w.Message)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── DependencyRemoveTool ───────────────────────────────────────────────────

// DependencyRemoveTool handles the dependency_remove MCP tool.
type DependencyRemoveTool struct {
	eng *engine.Engine
}

// NewDependencyRemoveTool creates a DependencyRemoveTool.
func NewDependencyRemoveTool(eng *engine.Engine) *DependencyRemoveTool {
	return &DependencyRemoveTool{eng: eng}
}

// Definition returns the MCP tool definition for dependency_remove.
func (t *DependencyRemoveTool) Definition() mcp.Tool {
	return mcp.NewTool("dependency_remove",
		mcp.WithDescription("Remove the dependency of one feature on another."),
		mcp.WithString("feature_id",
			mcp.Required(),
			mcp.Description("The dependent feature"),
		),
		mcp.WithString("depends_on_id",
			mcp.Required(),
			mcp.Description("The feature it depends on"),
		),
	)
}

// Handle processes the dependency_remove tool call.
func (t *DependencyRemoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	featureID := req.GetString("feature_id", "")
	dependsOnID := req.GetString("depends_on_id", "")
	if featureID == "" {
		return mcp.NewToolResultError("'feature_id' is required"), nil
	}
	if dependsOnID == "" {
		return mcp.NewToolResultError("'depends_on_id' is required"), nil
	}
	if err := t.eng.RemoveDependency(ctx, featureID, dependsOnID); err != nil {
		return engineError("remove dependency", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Dependency removed: %s no longer depends on %s", featureID, dependsOnID)), nil
}
