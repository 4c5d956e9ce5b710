package mcptools

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roach88/featureplan/internal/engine"
	"github.com/roach88/featureplan/internal/model"
)

// ProjectCreateTool handles the project_create MCP tool.
type ProjectCreateTool struct {
	eng *engine.Engine
}

// NewProjectCreateTool creates a ProjectCreateTool.
func NewProjectCreateTool(eng *engine.Engine) *ProjectCreateTool {
	return &ProjectCreateTool{eng: eng}
}

// Definition returns the MCP tool definition for project_create.
func (t *ProjectCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("project_create",
		mcp.WithDescription("Create a project. Features, dependencies and orderings all belong to a project."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithString("purpose",
			mcp.Description("What the project is for; also used as its initial description"),
		),
	)
}

// Handle processes the project_create tool call.
func (t *ProjectCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	id, err := t.eng.CreateProject(ctx, name, req.GetString("purpose", ""))
	if err != nil {
		return engineError("create project", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Project created: %q\nID: %s", name, id)), nil
}

// ─── ProjectListTool ────────────────────────────────────────────────────────

// ProjectListTool handles the project_list MCP tool.
type ProjectListTool struct {
	eng *engine.Engine
}

// NewProjectListTool creates a ProjectListTool.
func NewProjectListTool(eng *engine.Engine) *ProjectListTool {
	return &ProjectListTool{eng: eng}
}

// Definition returns the MCP tool definition for project_list.
func (t *ProjectListTool) Definition() mcp.Tool {
	return mcp.NewTool("project_list",
		mcp.WithDescription("List every project with its feature count."),
	)
}

// Handle processes the project_list tool call.
func (t *ProjectListTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects := sortedProjects(t.eng.Projects())
	if len(projects) == 0 {
		return mcp.NewToolResultText("No projects."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d project(s):\n", len(projects))
	for _, p := range projects {
		fmt.Fprintf(&b, "- %s (id: %s, features: %d)", p.Name, p.ID, len(t.eng.ProjectFeatures(p.ID)))
		if p.Purpose != "" {
			fmt.Fprintf(&b, ": %s", p.Purpose)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

// sortedProjects orders projects by creation time, then id.
func sortedProjects(in map[string]model.Project) []model.Project {
	out := make([]model.Project, 0, len(in))
	for _, p := range in {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Project) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// ─── ProjectDeleteTool ──────────────────────────────────────────────────────

// ProjectDeleteTool handles the project_delete MCP tool.
type ProjectDeleteTool struct {
	eng *engine.Engine
}

// NewProjectDeleteTool creates a ProjectDeleteTool.
func NewProjectDeleteTool(eng *engine.Engine) *ProjectDeleteTool {
	return &ProjectDeleteTool{eng: eng}
}

// Definition returns the MCP tool definition for project_delete.
func (t *ProjectDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("project_delete",
		mcp.WithDescription("Delete a project together with its features, their dependencies, positions and ordering."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Project id"),
		),
	)
}

// Handle processes the project_delete tool call.
func (t *ProjectDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	removed := len(t.eng.ProjectFeatures(id))
	if err := t.eng.DeleteProject(ctx, id); err != nil {
		return engineError("delete project", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Project %s deleted with %d feature(s).", id, removed)), nil
}
