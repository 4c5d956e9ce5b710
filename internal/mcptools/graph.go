package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roach88/featureplan/internal/engine"
	"github.com/roach88/featureplan/internal/export"
	"github.com/roach88/featureplan/internal/graph"
	"github.com/roach88/featureplan/internal/model"
)

// ProjectGraphTool handles the project_graph MCP tool.
type ProjectGraphTool struct {
	eng *engine.Engine
}

// NewProjectGraphTool creates a ProjectGraphTool.
func NewProjectGraphTool(eng *engine.Engine) *ProjectGraphTool {
	return &ProjectGraphTool{eng: eng}
}

// Definition returns the MCP tool definition for project_graph.
func (t *ProjectGraphTool) Definition() mcp.Tool {
	return mcp.NewTool("project_graph",
		mcp.WithDescription(
			"Describe a project's dependency graph: one line per feature with its dependency counts, "+
				"the edges, any cycles and a build order when none exist.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project id"),
		),
		mcp.WithString("search",
			mcp.Description("Only list features whose name or description contains this text"),
		),
	)
}

// Handle processes the project_graph tool call.
func (t *ProjectGraphTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	p, ok := t.eng.Project(projectID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("project %s not found", projectID)), nil
	}

	s := t.eng.Snapshot()
	features := t.eng.BoardFeatures(projectID)
	names := make(map[string]string, len(features))
	for _, f := range features {
		names[f.ID] = f.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Graph of %s\n\nNodes:", p.Name)
	for _, n := range graph.Nodes(features, s.Dependencies, s.NodePositions, req.GetString("search", "")) {
		if !n.Match {
			continue
		}
		fmt.Fprintf(&b, "\n- %s [%s] depends on %d, needed by %d", n.Name, n.Category, n.Dependencies, n.Dependents)
	}

	edges := graph.Edges(features, s.Dependencies)
	if len(edges) > 0 {
		b.WriteString("\n\nEdges:")
		for _, e := range edges {
			fmt.Fprintf(&b, "\n- %s -> %s", names[e.Source], names[e.Target])
		}
	}

	cycles := graph.AnalyzeCycles(features, s.Dependencies)
	for _, c := range cycles {
		fmt.Fprintf(&b, "\n\nWarning: %s", c.Message)
	}

	order, err := graph.BuildOrder(features, s.Dependencies)
	switch {
	case errors.Is(err, graph.ErrCycle):
		b.WriteString("\n\nNo build order exists.")
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	case len(order) > 0:
		b.WriteString("\n\nBuild order:")
		for i, id := range order {
			fmt.Fprintf(&b, "\n%d. %s", i+1, names[id])
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── PositionUpdateTool ─────────────────────────────────────────────────────

// PositionUpdateTool handles the position_update MCP tool.
type PositionUpdateTool struct {
	eng *engine.Engine
}

// NewPositionUpdateTool creates a PositionUpdateTool.
func NewPositionUpdateTool(eng *engine.Engine) *PositionUpdateTool {
	return &PositionUpdateTool{eng: eng}
}

// Definition returns the MCP tool definition for position_update.
func (t *PositionUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("position_update",
		mcp.WithDescription("Store the canvas position of a graph node."),
		mcp.WithString("node_id",
			mcp.Required(),
			mcp.Description("Node id, normally a feature id"),
		),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Horizontal coordinate")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Vertical coordinate")),
	)
}

// Handle processes the position_update tool call.
func (t *PositionUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID := req.GetString("node_id", "")
	if nodeID == "" {
		return mcp.NewToolResultError("'node_id' is required"), nil
	}
	x, okX := req.GetArguments()["x"].(float64)
	y, okY := req.GetArguments()["y"].(float64)
	if !okX || !okY {
		return mcp.NewToolResultError("'x' and 'y' must be numbers"), nil
	}
	pos := model.Position{X: x, Y: y}
	if !pos.Finite() {
		return mcp.NewToolResultError("'x' and 'y' must be finite"), nil
	}
	t.eng.UpdateNodePosition(ctx, nodeID, pos)
	return mcp.NewToolResultText(fmt.Sprintf("Position of %s set to (%g, %g).", nodeID, x, y)), nil
}

// ─── ProjectExportTool ──────────────────────────────────────────────────────

// ProjectExportTool handles the project_export MCP tool.
type ProjectExportTool struct {
	eng *engine.Engine
}

// NewProjectExportTool creates a ProjectExportTool.
func NewProjectExportTool(eng *engine.Engine) *ProjectExportTool {
	return &ProjectExportTool{eng: eng}
}

// Definition returns the MCP tool definition for project_export.
func (t *ProjectExportTool) Definition() mcp.Tool {
	return mcp.NewTool("project_export",
		mcp.WithDescription("Render a project as a Markdown planning document."),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project id"),
		),
	)
}

// Handle processes the project_export tool call.
func (t *ProjectExportTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	p, ok := t.eng.Project(projectID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("project %s not found", projectID)), nil
	}
	doc := export.Markdown(p, t.eng.BoardFeatures(projectID), t.eng.Snapshot().Dependencies)
	return mcp.NewToolResultText(doc), nil
}
