package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roach88/featureplan/internal/engine"
	"github.com/roach88/featureplan/internal/model"
	"github.com/roach88/featureplan/internal/query"
)

// FeatureCreateTool handles the feature_create MCP tool.
type FeatureCreateTool struct {
	eng *engine.Engine
}

// NewFeatureCreateTool creates a FeatureCreateTool.
func NewFeatureCreateTool(eng *engine.Engine) *FeatureCreateTool {
	return &FeatureCreateTool{eng: eng}
}

// Definition returns the MCP tool definition for feature_create.
func (t *FeatureCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_create",
		mcp.WithDescription("Add a feature to a project."),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project the feature belongs to"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Feature name"),
		),
		mcp.WithString("description",
			mcp.Description("What the feature does"),
		),
		mcp.WithString("category",
			mcp.Description("Planning column (default: essential)"),
			mcp.Enum(categoryValues()...),
		),
		mcp.WithString("priority",
			mcp.Description("Priority inside the column (default: medium)"),
			mcp.Enum(priorityValues()...),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form notes"),
		),
	)
}

// Handle processes the feature_create tool call.
func (t *FeatureCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	name := req.GetString("name", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	id, err := t.eng.CreateFeature(ctx, projectID, engine.FeatureInput{
		Name:        name,
		Description: req.GetString("description", ""),
		Category:    model.Category(req.GetString("category", "")),
		Priority:    model.Priority(req.GetString("priority", "")),
		Notes:       req.GetString("notes", ""),
	})
	if err != nil {
		return engineError("create feature", err), nil
	}
	f, _ := t.eng.Feature(id)
	return mcp.NewToolResultText(fmt.Sprintf("Feature created: %q [%s, %s]\nID: %s", f.Name, f.Category, f.Priority, id)), nil
}

// ─── FeatureUpdateTool ──────────────────────────────────────────────────────

// FeatureUpdateTool handles the feature_update MCP tool.
type FeatureUpdateTool struct {
	eng *engine.Engine
}

// NewFeatureUpdateTool creates a FeatureUpdateTool.
func NewFeatureUpdateTool(eng *engine.Engine) *FeatureUpdateTool {
	return &FeatureUpdateTool{eng: eng}
}

// Definition returns the MCP tool definition for feature_update.
func (t *FeatureUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_update",
		mcp.WithDescription(
			"Edit a feature. Only the fields supplied change. The previous values are kept in the feature's history "+
				"and can be brought back with feature_restore.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Feature id"),
		),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("category",
			mcp.Description("New planning column"),
			mcp.Enum(categoryValues()...),
		),
		mcp.WithString("priority",
			mcp.Description("New priority"),
			mcp.Enum(priorityValues()...),
		),
		mcp.WithString("notes", mcp.Description("New notes")),
	)
}

// Handle processes the feature_update tool call.
func (t *FeatureUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	var patch engine.FeaturePatch
	if v, ok := stringArg(req, "name"); ok {
		patch.Name = &v
	}
	if v, ok := stringArg(req, "description"); ok {
		patch.Description = &v
	}
	if v, ok := stringArg(req, "category"); ok {
		c := model.Category(v)
		patch.Category = &c
	}
	if v, ok := stringArg(req, "priority"); ok {
		p := model.Priority(v)
		patch.Priority = &p
	}
	if v, ok := stringArg(req, "notes"); ok {
		patch.Notes = &v
	}

	f, entry, err := t.eng.PatchFeature(ctx, id, patch)
	if err != nil {
		return engineError("update feature", err), nil
	}
	if entry == nil {
		return mcp.NewToolResultText(fmt.Sprintf("Feature %q unchanged.", f.Name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Feature %q updated.\nHistory entry: %s", f.Name, entry.ID)), nil
}

// ─── FeatureMoveTool ────────────────────────────────────────────────────────

// FeatureMoveTool handles the feature_move MCP tool.
type FeatureMoveTool struct {
	eng *engine.Engine
}

// NewFeatureMoveTool creates a FeatureMoveTool.
func NewFeatureMoveTool(eng *engine.Engine) *FeatureMoveTool {
	return &FeatureMoveTool{eng: eng}
}

// Definition returns the MCP tool definition for feature_move.
func (t *FeatureMoveTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_move",
		mcp.WithDescription("Move a feature to a planning column and position in its project's ordering."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Feature id"),
		),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Target planning column"),
			mcp.Enum(categoryValues()...),
		),
		mcp.WithNumber("index",
			mcp.Description("Position in the project's ordering, clamped to its bounds (default: 0)"),
		),
	)
}

// Handle processes the feature_move tool call.
func (t *FeatureMoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	category := req.GetString("category", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	if category == "" {
		return mcp.NewToolResultError("'category' is required"), nil
	}
	f, ok := t.eng.Feature(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("feature %s not found", id)), nil
	}

	if err := t.eng.MoveFeature(ctx, id, model.Category(category), f.ProjectID, intArg(req, "index", 0)); err != nil {
		return engineError("move feature", err), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Feature %q moved to %s.\n%s:\n", f.Name, category, model.Category(category).Title())
	b.WriteString(featureLines(t.eng.OrderedFeatures(f.ProjectID, model.Category(category))))
	return mcp.NewToolResultText(b.String()), nil
}

// ─── FeatureDeleteTool ──────────────────────────────────────────────────────

// FeatureDeleteTool handles the feature_delete MCP tool.
type FeatureDeleteTool struct {
	eng *engine.Engine
}

// NewFeatureDeleteTool creates a FeatureDeleteTool.
func NewFeatureDeleteTool(eng *engine.Engine) *FeatureDeleteTool {
	return &FeatureDeleteTool{eng: eng}
}

// Definition returns the MCP tool definition for feature_delete.
func (t *FeatureDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_delete",
		mcp.WithDescription("Delete a feature and every dependency that mentions it."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Feature id"),
		),
	)
}

// Handle processes the feature_delete tool call.
func (t *FeatureDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	if err := t.eng.DeleteFeature(ctx, id); err != nil {
		return engineError("delete feature", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Feature %s deleted.", id)), nil
}

// ─── FeatureListTool ────────────────────────────────────────────────────────

// FeatureListTool handles the feature_list MCP tool.
type FeatureListTool struct {
	eng *engine.Engine
}

// NewFeatureListTool creates a FeatureListTool.
func NewFeatureListTool(eng *engine.Engine) *FeatureListTool {
	return &FeatureListTool{eng: eng}
}

// Definition returns the MCP tool definition for feature_list.
func (t *FeatureListTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_list",
		mcp.WithDescription(
			"List a project's features by planning column. An optional filter expression selects features, "+
				`e.g. priority == "high" && dependents > 0. Fields: id, name, description, category, priority, notes, `+
				"history, dependencies, dependents, created_at, updated_at.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project id"),
		),
		mcp.WithString("filter",
			mcp.Description("Boolean filter expression"),
		),
	)
}

// Handle processes the feature_list tool call.
func (t *FeatureListTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	p, ok := t.eng.Project(projectID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("project %s not found", projectID)), nil
	}

	features := t.eng.BoardFeatures(projectID)
	if expr := req.GetString("filter", ""); expr != "" {
		filter, err := query.Compile(expr)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		features, err = filter.Apply(features, t.eng.Snapshot())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d feature(s)", p.Name, len(features))
	for _, c := range model.Categories {
		var group []model.Feature
		for _, f := range features {
			if f.Category == c {
				group = append(group, f)
			}
		}
		if len(group) > 0 {
			fmt.Fprintf(&b, "\n\n%s:\n%s", c.Title(), featureLines(group))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── FeatureHistoryTool ─────────────────────────────────────────────────────

// FeatureHistoryTool handles the feature_history MCP tool.
type FeatureHistoryTool struct {
	eng *engine.Engine
}

// NewFeatureHistoryTool creates a FeatureHistoryTool.
func NewFeatureHistoryTool(eng *engine.Engine) *FeatureHistoryTool {
	return &FeatureHistoryTool{eng: eng}
}

// Definition returns the MCP tool definition for feature_history.
func (t *FeatureHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_history",
		mcp.WithDescription("Show a feature's edit history, oldest first. Each entry holds the values before that edit."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Feature id"),
		),
	)
}

// Handle processes the feature_history tool call.
func (t *FeatureHistoryTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	f, ok := t.eng.Feature(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("feature %s not found", id)), nil
	}
	if len(f.History) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Feature %q has no history.", f.Name)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "History of %q (%d edit(s)):", f.Name, len(f.History))
	for _, h := range f.History {
		v := h.PreviousValues
		fmt.Fprintf(&b, "\n- %s at %s: was %q [%s, %s]", h.ID, h.Timestamp.Format("2006-01-02 15:04:05"), v.Name, v.Category, v.Priority)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── FeatureRestoreTool ─────────────────────────────────────────────────────

// FeatureRestoreTool handles the feature_restore MCP tool.
type FeatureRestoreTool struct {
	eng *engine.Engine
}

// NewFeatureRestoreTool creates a FeatureRestoreTool.
func NewFeatureRestoreTool(eng *engine.Engine) *FeatureRestoreTool {
	return &FeatureRestoreTool{eng: eng}
}

// Definition returns the MCP tool definition for feature_restore.
func (t *FeatureRestoreTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_restore",
		mcp.WithDescription("Bring back the values recorded in one history entry of a feature. The restore is itself recorded."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Feature id"),
		),
		mcp.WithString("history_id",
			mcp.Required(),
			mcp.Description("History entry id from feature_history"),
		),
	)
}

// Handle processes the feature_restore tool call.
func (t *FeatureRestoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	historyID := req.GetString("history_id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	if historyID == "" {
		return mcp.NewToolResultError("'history_id' is required"), nil
	}
	if err := t.eng.RestoreFeature(ctx, id, historyID); err != nil {
		return engineError("restore feature", err), nil
	}
	f, _ := t.eng.Feature(id)
	return mcp.NewToolResultText(fmt.Sprintf("Feature restored: %q [%s, %s]", f.Name, f.Category, f.Priority)), nil
}
