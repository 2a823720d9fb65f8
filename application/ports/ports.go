// Package ports declares the interfaces the application layer consumes.
// Infrastructure provides the implementations.
package ports

import (
	"context"
)

// QueryResponse is the raw shape the query-execution collaborator returns.
// Graph fields stay untyped: shape validation belongs to the model boundary
// (graph.NewConfig), not to transport.
type QueryResponse struct {
	Nodes       any                       `json:"nodes"`
	Edges       any                       `json:"edges"`
	Rows        any                       `json:"rows"`
	Schema      any                       `json:"schema"`
	QueryResult any                       `json:"query_result"`
	// NodeProperties maps node identifier to lazily-resolved display
	// properties, keyed by property name.
	NodeProperties map[string]map[string]any `json:"node_properties"`
}

// ExpansionQuery scopes a query to the undiscovered neighborhood of one node.
type ExpansionQuery struct {
	NodeID     int64          `json:"node_id"`
	Direction  string         `json:"direction"`
	EdgeLabel  string         `json:"edge_label"`
	Properties map[string]any `json:"properties"`
}

// QueryExecutor runs queries against the graph database backend. Errors are
// explicit returns; callers must never infer failure from response fields.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]string) (*QueryResponse, error)
	ExpandNode(ctx context.Context, q ExpansionQuery) (*QueryResponse, error)
}

// PreferenceStore persists label-display preferences: node label -> property
// name chosen to customize the displayed identifier.
type PreferenceStore interface {
	SavePreference(ctx context.Context, label, propertyName string) error
	Preferences(ctx context.Context) (map[string]string, error)
}
