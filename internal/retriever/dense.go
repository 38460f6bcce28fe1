package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CoReason-AI/coreason-search/internal/embed"
	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
	"github.com/CoReason-AI/coreason-search/internal/filter"
	"github.com/CoReason-AI/coreason-search/internal/query"
	"github.com/CoReason-AI/coreason-search/internal/schema"
	"github.com/CoReason-AI/coreason-search/internal/store"
)

// Dense retrieves by embedding the semantic query text and searching the
// vector index; score = 1.0 - cosine distance.
type Dense struct {
	embedder embed.Embedder
	index    *store.VectorIndex
	docs     *store.DocumentStore
	logger   *slog.Logger
}

var _ Interface = (*Dense)(nil)

// NewDense wires the dense strategy.
func NewDense(embedder embed.Embedder, index *store.VectorIndex, docs *store.DocumentStore, logger *slog.Logger) *Dense {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dense{embedder: embedder, index: index, docs: docs, logger: logger}
}

// Name returns the strategy tag.
func (d *Dense) Name() string {
	return string(schema.StrategyDense)
}

// Retrieve embeds the query, searches the index with the oversampled
// bound, hydrates rows, post-filters, and truncates to top_k.
func (d *Dense) Retrieve(ctx context.Context, req *schema.SearchRequest) ([]*schema.Hit, error) {
	semantic := query.SemanticText(req.Query)

	vector, err := d.embedder.Embed(ctx, semantic)
	if err != nil {
		return nil, cserrors.BackendError(fmt.Sprintf("dense: embedding failed: %v", err), err)
	}

	limit := oversampleLimit(req.TopK, len(req.Filters) > 0)
	matches, err := d.index.Search(ctx, vector, limit)
	if err != nil {
		return nil, cserrors.BackendError(fmt.Sprintf("dense: vector search failed: %v", err), err)
	}
	if len(matches) == 0 {
		return []*schema.Hit{}, nil
	}

	ids := make([]string, len(matches))
	scoreByID := make(map[string]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.DocID
		scoreByID[m.DocID] = float64(m.Score)
	}

	rows, err := d.docs.GetMany(ctx, ids)
	if err != nil {
		return nil, cserrors.BackendError(fmt.Sprintf("dense: document fetch failed: %v", err), err)
	}

	hits := make([]*schema.Hit, 0, len(rows))
	for _, row := range rows {
		metadata := parseMetadata(d.logger, row.DocID, row.Metadata)
		if len(req.Filters) > 0 && !filter.Matches(metadata, req.Filters) {
			continue
		}
		hits = append(hits, &schema.Hit{
			DocID:          row.DocID,
			Content:        contentPtr(row.Content),
			Score:          scoreByID[row.DocID],
			SourceStrategy: schema.StrategyDense,
			Metadata:       metadata,
		})
	}

	return truncate(hits, req.TopK), nil
}
