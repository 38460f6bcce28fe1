package graph

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryClient is an in-memory graph for tests, the seed corpus, and
// deployments without a graph service. Name matching is case-insensitive
// substring search.
type MemoryClient struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	edges map[string][]string
}

var _ Client = (*MemoryClient)(nil)

// NewMemoryClient creates an empty in-memory graph.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		nodes: make(map[string]*Node),
		edges: make(map[string][]string),
	}
}

// AddNode inserts or replaces a node.
func (m *MemoryClient) AddNode(node *Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[node.NodeID] = node
}

// AddEdge links two nodes bidirectionally.
func (m *MemoryClient) AddEdge(fromID, toID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[fromID] = append(m.edges[fromID], toID)
	m.edges[toID] = append(m.edges[toID], fromID)
}

// SearchNodes returns up to limit nodes whose name contains the query
// text, case-insensitively.
func (m *MemoryClient) SearchNodes(_ context.Context, text string, limit int) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return []*Node{}, nil
	}

	// Collect everything first: map iteration order would otherwise make
	// the result, and anything derived from it, vary between runs.
	matches := []*Node{}
	for _, node := range m.nodes {
		if strings.Contains(strings.ToLower(node.Name), needle) {
			matches = append(matches, node)
		}
	}
	slices.SortFunc(matches, func(a, b *Node) int {
		return strings.Compare(a.NodeID, b.NodeID)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Neighbors returns the 1-hop neighborhood of a node. Unknown ids return
// an empty list.
func (m *MemoryClient) Neighbors(_ context.Context, nodeID string) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.edges[nodeID]
	neighbors := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if node, ok := m.nodes[id]; ok {
			neighbors = append(neighbors, node)
		}
	}
	return neighbors, nil
}

// SeedDemo loads the demonstration pharmacovigilance graph: a protein
// linked to two papers, one of which reports an adverse event.
func SeedDemo(m *MemoryClient) {
	m.AddNode(&Node{NodeID: "protein_x", Label: "Protein", Name: "Protein X"})
	m.AddNode(&Node{
		NodeID: "paper_a",
		Label:  LabelPaper,
		Name:   "Paper A",
		Properties: map[string]any{
			"content": "Protein X interactions and observed hepatic outcomes.",
			"year":    2023,
		},
	})
	m.AddNode(&Node{
		NodeID: "paper_b",
		Label:  LabelPaper,
		Name:   "Paper B",
		Properties: map[string]any{
			"content": "Protein X structural analysis.",
			"year":    2022,
		},
	})
	m.AddNode(&Node{NodeID: "liver_failure", Label: LabelAdverseEvent, Name: "Liver Failure"})

	m.AddEdge("protein_x", "paper_a")
	m.AddEdge("protein_x", "paper_b")
	m.AddEdge("paper_a", "liver_failure")
}
