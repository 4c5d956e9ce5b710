// Package graph derives the dependency-graph view of a project's features.
//
// Edges point from a feature to the feature it depends on
// (source = feature_id, target = depends_on_id). Only edges whose two
// endpoints are in the supplied feature list are drawn, so callers can
// restrict the graph to one project or to a filtered subset.
package graph
