package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_SearchNodesSubstringCaseInsensitive(t *testing.T) {
	// Given the demo graph
	m := NewMemoryClient()
	SeedDemo(m)
	ctx := context.Background()

	// When searching with different casing
	nodes, err := m.SearchNodes(ctx, "protein x", 10)
	require.NoError(t, err)

	// Then the protein node matches
	require.Len(t, nodes, 1)
	assert.Equal(t, "protein_x", nodes[0].NodeID)
}

func TestMemoryClient_SearchNodesLimit(t *testing.T) {
	m := NewMemoryClient()
	SeedDemo(m)

	nodes, err := m.SearchNodes(context.Background(), "paper", 1)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestMemoryClient_SearchNodesEmptyText(t *testing.T) {
	m := NewMemoryClient()
	SeedDemo(m)

	nodes, err := m.SearchNodes(context.Background(), "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestMemoryClient_NeighborsBidirectional(t *testing.T) {
	m := NewMemoryClient()
	SeedDemo(m)
	ctx := context.Background()

	neighbors, err := m.Neighbors(ctx, "protein_x")
	require.NoError(t, err)
	require.Len(t, neighbors, 2)

	// The edge also runs back from the paper
	back, err := m.Neighbors(ctx, "paper_a")
	require.NoError(t, err)
	ids := make([]string, 0, len(back))
	for _, n := range back {
		ids = append(ids, n.NodeID)
	}
	assert.ElementsMatch(t, []string{"protein_x", "liver_failure"}, ids)
}

func TestMemoryClient_NeighborsUnknownID(t *testing.T) {
	m := NewMemoryClient()

	neighbors, err := m.Neighbors(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, neighbors)
}

func TestMemoryClient_SearchNodesDeterministicOrder(t *testing.T) {
	// Given many nodes matching the same name, inserted out of id order
	m := NewMemoryClient()
	for _, id := range []string{"paper_9", "paper_3", "paper_1", "paper_7", "paper_5"} {
		m.AddNode(&Node{NodeID: id, Label: LabelPaper, Name: "Shared Title"})
	}

	// When searching repeatedly
	first, err := m.SearchNodes(context.Background(), "shared", 10)
	require.NoError(t, err)

	// Then matches come back sorted by id, identically every run
	wantIDs := []string{"paper_1", "paper_3", "paper_5", "paper_7", "paper_9"}
	gotIDs := make([]string, len(first))
	for i, node := range first {
		gotIDs[i] = node.NodeID
	}
	assert.Equal(t, wantIDs, gotIDs)

	for range 10 {
		again, err := m.SearchNodes(context.Background(), "shared", 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// And the limit keeps the lowest ids
	limited, err := m.SearchNodes(context.Background(), "shared", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "paper_1", limited[0].NodeID)
	assert.Equal(t, "paper_3", limited[1].NodeID)
}
