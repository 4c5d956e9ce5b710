package engine

import (
	"context"
	"maps"
	"slices"

	"github.com/roach88/featureplan/internal/model"
)

// FeatureInput holds the editable fields of a new feature.
//
// An empty Category defaults to essential and an empty Priority to medium.
type FeatureInput struct {
	Name        string
	Description string
	Category    model.Category
	Priority    model.Priority
	Notes       string
}

func (in FeatureInput) withDefaults() FeatureInput {
	if in.Category == "" {
		in.Category = model.CategoryEssential
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	return in
}

func validateEnums(op, id string, c model.Category, p model.Priority) error {
	if !c.Valid() {
		return invalid(op, id, "unknown category %q", c)
	}
	if !p.Valid() {
		return invalid(op, id, "unknown priority %q", p)
	}
	return nil
}

// CreateFeature adds a feature to an existing project and returns its id.
// The engine assigns the id and timestamps; history starts empty.
func (e *Engine) CreateFeature(ctx context.Context, projectID string, in FeatureInput) (string, error) {
	in = in.withDefaults()
	var id string
	err := e.apply(ctx, "CreateFeature", func(cur *model.State) (*model.State, []model.Table, error) {
		if _, ok := cur.Projects[projectID]; !ok {
			return nil, nil, notFound("CreateFeature", projectID, "project does not exist")
		}
		if err := validateEnums("CreateFeature", "", in.Category, in.Priority); err != nil {
			return nil, nil, err
		}
		id = e.ids.Generate()
		if _, exists := cur.Features[id]; exists {
			return nil, nil, invalid("CreateFeature", id, "generated id already in use")
		}

		now := e.timestamp()
		next := cur.Shallow()
		next.Features = maps.Clone(cur.Features)
		next.Features[id] = model.Feature{
			ID:          id,
			ProjectID:   projectID,
			Name:        in.Name,
			Description: in.Description,
			Category:    in.Category,
			Priority:    in.Priority,
			Notes:       in.Notes,
			History:     []model.HistoryEntry{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return next, []model.Table{model.TableFeatures}, nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// AddFeature inserts a fully formed feature with a caller-supplied id. It is
// the restore path: supplied history is kept, zero timestamps are set to
// now and an empty priority defaults to medium. All timestamps are stored in
// UTC.
func (e *Engine) AddFeature(ctx context.Context, f model.Feature) error {
	return e.apply(ctx, "AddFeature", func(cur *model.State) (*model.State, []model.Table, error) {
		if f.ID == "" {
			return nil, nil, invalid("AddFeature", "", "feature id is required")
		}
		if _, exists := cur.Features[f.ID]; exists {
			return nil, nil, invalid("AddFeature", f.ID, "feature already exists")
		}
		if _, ok := cur.Projects[f.ProjectID]; !ok {
			return nil, nil, notFound("AddFeature", f.ID, "project %q does not exist", f.ProjectID)
		}
		if f.Priority == "" {
			f.Priority = model.PriorityMedium
		}
		if err := validateEnums("AddFeature", f.ID, f.Category, f.Priority); err != nil {
			return nil, nil, err
		}

		now := e.timestamp()
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		if f.UpdatedAt.IsZero() {
			f.UpdatedAt = f.CreatedAt
		}
		f.CreatedAt = f.CreatedAt.UTC()
		f.UpdatedAt = f.UpdatedAt.UTC()
		f.History = slices.Clone(f.History)
		if f.History == nil {
			f.History = []model.HistoryEntry{}
		}
		for i := range f.History {
			f.History[i].Timestamp = f.History[i].Timestamp.UTC()
		}

		next := cur.Shallow()
		next.Features = maps.Clone(cur.Features)
		next.Features[f.ID] = f
		return next, []model.Table{model.TableFeatures}, nil
	})
}

// UpdateFeature replaces the editable fields of an existing feature.
//
// The engine compares name, description, category, priority and notes with
// the stored feature. If any differ, it appends a history entry holding the
// previous values and sets updatedAt. If none differ, nothing happens.
// History, timestamps and id fields of f are ignored; an empty priority
// keeps the stored one.
//
// Returns not-found if the feature is absent and invalid if f moves the
// feature to another project or carries an unknown category or priority.
func (e *Engine) UpdateFeature(ctx context.Context, f model.Feature) error {
	return e.apply(ctx, "UpdateFeature", func(cur *model.State) (*model.State, []model.Table, error) {
		old, ok := cur.Features[f.ID]
		if !ok {
			return nil, nil, notFound("UpdateFeature", f.ID, "feature does not exist")
		}
		if f.ProjectID != "" && f.ProjectID != old.ProjectID {
			return nil, nil, invalid("UpdateFeature", f.ID, "feature cannot move from project %q to %q", old.ProjectID, f.ProjectID)
		}
		return e.edit(cur, "UpdateFeature", old, f.Editable())
	})
}

// FeaturePatch selects the editable fields to change. Nil fields keep their
// current value.
type FeaturePatch struct {
	Name        *string
	Description *string
	Category    *model.Category
	Priority    *model.Priority
	Notes       *string
}

// PatchFeature applies patch to the stored feature as a single edit, with the
// same history rules as UpdateFeature. It returns the feature as the edit
// left it and the history entry the edit appended, or a nil entry when
// nothing changed.
func (e *Engine) PatchFeature(ctx context.Context, id string, patch FeaturePatch) (model.Feature, *model.HistoryEntry, error) {
	var (
		result model.Feature
		entry  *model.HistoryEntry
	)
	err := e.apply(ctx, "PatchFeature", func(cur *model.State) (*model.State, []model.Table, error) {
		old, ok := cur.Features[id]
		if !ok {
			return nil, nil, notFound("PatchFeature", id, "feature does not exist")
		}
		v := old.Editable()
		if patch.Name != nil {
			v.Name = *patch.Name
		}
		if patch.Description != nil {
			v.Description = *patch.Description
		}
		if patch.Category != nil {
			v.Category = *patch.Category
		}
		if patch.Priority != nil {
			v.Priority = *patch.Priority
		}
		if patch.Notes != nil {
			v.Notes = *patch.Notes
		}

		next, tables, err := e.edit(cur, "PatchFeature", old, v)
		if err != nil {
			return nil, nil, err
		}
		result = old
		if next != nil {
			result = next.Features[id]
			last := result.History[len(result.History)-1]
			entry = &last
		}
		result.History = slices.Clone(result.History)
		return next, tables, nil
	})
	if err != nil {
		return model.Feature{}, nil, err
	}
	return result, entry, nil
}

// RestoreFeature reapplies the previous values recorded in one of the
// feature's history entries. The restore is itself an edit, so the values
// it replaces are recorded as a new history entry.
func (e *Engine) RestoreFeature(ctx context.Context, featureID, historyID string) error {
	return e.apply(ctx, "RestoreFeature", func(cur *model.State) (*model.State, []model.Table, error) {
		old, ok := cur.Features[featureID]
		if !ok {
			return nil, nil, notFound("RestoreFeature", featureID, "feature does not exist")
		}
		i := slices.IndexFunc(old.History, func(h model.HistoryEntry) bool { return h.ID == historyID })
		if i < 0 {
			return nil, nil, notFound("RestoreFeature", featureID, "history entry %q does not exist", historyID)
		}
		return e.edit(cur, "RestoreFeature", old, old.History[i].PreviousValues)
	})
}

// edit applies v to old and records history when something changed.
func (e *Engine) edit(cur *model.State, op string, old model.Feature, v model.PreviousValues) (*model.State, []model.Table, error) {
	updated := old.WithEditable(v)
	if err := validateEnums(op, old.ID, updated.Category, updated.Priority); err != nil {
		return nil, nil, err
	}
	if updated.Editable() == old.Editable() {
		return nil, nil, nil
	}

	now := e.timestamp()
	updated.History = append(slices.Clone(old.History), model.HistoryEntry{
		ID:             e.ids.Generate(),
		Timestamp:      now,
		PreviousValues: old.Editable(),
	})
	updated.UpdatedAt = now

	next := cur.Shallow()
	next.Features = maps.Clone(cur.Features)
	next.Features[old.ID] = updated
	return next, []model.Table{model.TableFeatures}, nil
}

// DeleteFeature removes a feature, every dependency in which it is either
// endpoint, its node position and its entries in feature orders.
func (e *Engine) DeleteFeature(ctx context.Context, id string) error {
	return e.apply(ctx, "DeleteFeature", func(cur *model.State) (*model.State, []model.Table, error) {
		if _, ok := cur.Features[id]; !ok {
			return nil, nil, notFound("DeleteFeature", id, "feature does not exist")
		}
		doomed := map[string]bool{id: true}

		next := cur.Shallow()
		next.Features = maps.Clone(cur.Features)
		delete(next.Features, id)
		tables := []model.Table{model.TableFeatures}

		if deps, changed := withoutEdges(cur.Dependencies, doomed); changed {
			next.Dependencies = deps
			tables = append(tables, model.TableDependencies)
		}
		if positions, changed := withoutPositions(cur.NodePositions, doomed); changed {
			next.NodePositions = positions
			tables = append(tables, model.TableNodePositions)
		}
		if orders, changed := withoutOrdered(cur.FeatureOrders, id); changed {
			next.FeatureOrders = orders
			tables = append(tables, model.TableFeatureOrders)
		}
		return next, tables, nil
	})
}

// MoveFeature sets a feature's category and places it at newIndex in the
// project's feature order. The id is removed from the order first if it is
// already listed; newIndex is clamped to the bounds of the order.
//
// Returns not-found if the feature is absent and invalid if the category is
// unknown or the feature does not belong to projectID.
func (e *Engine) MoveFeature(ctx context.Context, featureID string, category model.Category, projectID string, newIndex int) error {
	return e.apply(ctx, "MoveFeature", func(cur *model.State) (*model.State, []model.Table, error) {
		f, ok := cur.Features[featureID]
		if !ok {
			return nil, nil, notFound("MoveFeature", featureID, "feature does not exist")
		}
		if !category.Valid() {
			return nil, nil, invalid("MoveFeature", featureID, "unknown category %q", category)
		}
		if f.ProjectID != projectID {
			return nil, nil, invalid("MoveFeature", featureID, "feature belongs to project %q, not %q", f.ProjectID, projectID)
		}

		next := cur.Shallow()
		var tables []model.Table
		if f.Category != category {
			f.Category = category
			f.UpdatedAt = e.timestamp()
			next.Features = maps.Clone(cur.Features)
			next.Features[featureID] = f
			tables = append(tables, model.TableFeatures)
		}

		order := slices.DeleteFunc(slices.Clone(cur.FeatureOrders[projectID]), func(id string) bool {
			return id == featureID
		})
		if order == nil {
			order = []string{}
		}
		newIndex = max(0, min(newIndex, len(order)))
		order = slices.Insert(order, newIndex, featureID)

		next.FeatureOrders = maps.Clone(cur.FeatureOrders)
		next.FeatureOrders[projectID] = order
		tables = append(tables, model.TableFeatureOrders)
		return next, tables, nil
	})
}

// withoutOrdered removes id from every feature order that lists it.
func withoutOrdered(in map[string][]string, id string) (map[string][]string, bool) {
	var out map[string][]string
	for projectID, order := range in {
		if !slices.Contains(order, id) {
			continue
		}
		if out == nil {
			out = maps.Clone(in)
		}
		out[projectID] = slices.DeleteFunc(slices.Clone(order), func(x string) bool { return x == id })
	}
	if out == nil {
		return in, false
	}
	return out, true
}
