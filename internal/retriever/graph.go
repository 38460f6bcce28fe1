package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
	"github.com/CoReason-AI/coreason-search/internal/graph"
	"github.com/CoReason-AI/coreason-search/internal/query"
	"github.com/CoReason-AI/coreason-search/internal/schema"
)

// graphStartNodeLimit bounds entity resolution for the query text.
const graphStartNodeLimit = 10

// Graph expands entities to papers with a two-hop validity filter: a
// paper qualifies only when at least one of its neighbors is an adverse
// event, and the qualifying events are listed on the hit.
type Graph struct {
	client graph.Client
	logger *slog.Logger
}

var _ Interface = (*Graph)(nil)

// NewGraph wires the graph strategy.
func NewGraph(client graph.Client, logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{client: client, logger: logger}
}

// Name returns the strategy tag.
func (g *Graph) Name() string {
	return string(schema.StrategyGraph)
}

// Retrieve resolves start nodes from the semantic query text, walks to
// their papers, keeps papers with adverse-event neighbors, and emits one
// hit per retained paper.
func (g *Graph) Retrieve(ctx context.Context, req *schema.SearchRequest) ([]*schema.Hit, error) {
	semantic := query.SemanticText(req.Query)

	starts, err := g.client.SearchNodes(ctx, semantic, graphStartNodeLimit)
	if err != nil {
		return nil, cserrors.BackendError(fmt.Sprintf("graph: node search failed: %v", err), err)
	}

	// Hop 1: papers adjacent to any start node, deduped by node id in
	// first-seen order.
	var papers []*graph.Node
	seen := make(map[string]bool)
	for _, start := range starts {
		neighbors, err := g.client.Neighbors(ctx, start.NodeID)
		if err != nil {
			return nil, cserrors.BackendError(fmt.Sprintf("graph: neighbors of %s failed: %v", start.NodeID, err), err)
		}
		for _, n := range neighbors {
			if n.Label == graph.LabelPaper && !seen[n.NodeID] {
				seen[n.NodeID] = true
				papers = append(papers, n)
			}
		}
	}

	hits := make([]*schema.Hit, 0, len(papers))
	for _, paper := range papers {
		// Hop 2: the paper must connect to at least one adverse event.
		neighbors, err := g.client.Neighbors(ctx, paper.NodeID)
		if err != nil {
			return nil, cserrors.BackendError(fmt.Sprintf("graph: neighbors of %s failed: %v", paper.NodeID, err), err)
		}

		events := adverseEventNames(neighbors)
		if len(events) == 0 {
			continue
		}

		hits = append(hits, g.paperHit(paper, events))
		if len(hits) >= req.TopK {
			break
		}
	}

	return hits, nil
}

// adverseEventNames returns the sorted unique names of adverse-event
// nodes in a neighborhood.
func adverseEventNames(neighbors []*graph.Node) []string {
	unique := make(map[string]bool)
	for _, n := range neighbors {
		if n.Label == graph.LabelAdverseEvent {
			unique[n.Name] = true
		}
	}
	if len(unique) == 0 {
		return nil
	}

	names := make([]string, 0, len(unique))
	for name := range unique {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Graph) paperHit(paper *graph.Node, events []string) *schema.Hit {
	metadata := make(map[string]any, len(paper.Properties)+1)
	for k, v := range paper.Properties {
		metadata[k] = v
	}
	metadata["connected_adverse_events"] = events

	content := ""
	if c, ok := paper.Properties["content"].(string); ok {
		content = c
	}

	return &schema.Hit{
		DocID:          paper.NodeID,
		Content:        contentPtr(content),
		Score:          1.0,
		SourceStrategy: schema.StrategyGraph,
		Metadata:       metadata,
	}
}
