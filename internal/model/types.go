package model

import (
	"math"
	"time"
)

// Project is the top-level container for features.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Purpose     string    `json:"purpose"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// Feature is a planned capability owned by exactly one project.
type Feature struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    Category       `json:"category"`
	Priority    Priority       `json:"priority"`
	Notes       string         `json:"notes"`
	History     []HistoryEntry `json:"history"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// HistoryEntry is an immutable snapshot of a feature's editable fields,
// captured just before they were changed.
type HistoryEntry struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	PreviousValues PreviousValues `json:"previousValues"`
}

// PreviousValues holds the editable fields of a feature at one point in time.
type PreviousValues struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Priority    Priority `json:"priority,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// Dependency is a directed edge: FeatureID depends on DependsOnID.
type Dependency struct {
	ID          string `json:"id"`
	FeatureID   string `json:"feature_id"`
	DependsOnID string `json:"depends_on_id"`
}

// Position is a canvas coordinate used by the graph view.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are finite. NaN and infinities
// cannot be encoded as JSON.
func (p Position) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Editable returns the feature's editable fields as history values.
func (f Feature) Editable() PreviousValues {
	return PreviousValues{
		Name:        f.Name,
		Description: f.Description,
		Category:    f.Category,
		Priority:    f.Priority,
		Notes:       f.Notes,
	}
}

// WithEditable returns a copy of f with the editable fields replaced by v.
// An empty priority in v keeps the current priority.
func (f Feature) WithEditable(v PreviousValues) Feature {
	f.Name = v.Name
	f.Description = v.Description
	f.Category = v.Category
	if v.Priority != "" {
		f.Priority = v.Priority
	}
	f.Notes = v.Notes
	return f
}
