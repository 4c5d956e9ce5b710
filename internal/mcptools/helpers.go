// Package mcptools exposes the store engine as MCP tools.
//
// Each tool follows the same pattern:
//   - a struct holding the *engine.Engine, injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Engine rejections (unknown ids, invalid values) are returned as tool
// errors, not Go errors, so the calling agent can read and correct them.
package mcptools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roach88/featureplan/internal/engine"
	"github.com/roach88/featureplan/internal/model"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// stringArg reports the string argument key and whether it was supplied.
func stringArg(req mcp.CallToolRequest, key string) (string, bool) {
	v, ok := req.GetArguments()[key].(string)
	return v, ok
}

func categoryValues() []string {
	out := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		out[i] = string(c)
	}
	return out
}

func priorityValues() []string {
	return []string{string(model.PriorityHigh), string(model.PriorityMedium), string(model.PriorityLow)}
}

// engineError renders an engine rejection as a tool error.
func engineError(action string, err error) *mcp.CallToolResult {
	switch {
	case engine.IsNotFound(err):
		return mcp.NewToolResultError(fmt.Sprintf("%s: not found: %v", action, err))
	case engine.IsInvalid(err):
		return mcp.NewToolResultError(fmt.Sprintf("%s: rejected: %v", action, err))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
}

// featureLine renders one feature as a single list line.
func featureLine(f model.Feature) string {
	return fmt.Sprintf("- %s [%s, %s] (id: %s)", f.Name, f.Category, f.Priority, f.ID)
}

func featureLines(features []model.Feature) string {
	lines := make([]string, len(features))
	for i, f := range features {
		lines[i] = featureLine(f)
	}
	return strings.Join(lines, "\n")
}
