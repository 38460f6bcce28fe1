// Package graph defines the knowledge-graph collaborator consumed by the
// graph retrieval strategy.
package graph

import "context"

// Node labels used by the graph retriever.
const (
	LabelPaper        = "Paper"
	LabelAdverseEvent = "AdverseEvent"
)

// Node is one graph node.
type Node struct {
	NodeID     string         `json:"node_id"`
	Label      string         `json:"label"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
}

// Client is the graph backend. SearchNodes resolves free text to start
// nodes; Neighbors returns the 1-hop neighborhood of a node.
type Client interface {
	SearchNodes(ctx context.Context, text string, limit int) ([]*Node, error)
	Neighbors(ctx context.Context, nodeID string) ([]*Node, error)
}
