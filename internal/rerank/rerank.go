// Package rerank re-scores a bounded candidate set against the query.
// The cross-encoder model itself is an external collaborator; this
// package defines the contract and the built-in implementations.
package rerank

import (
	"context"
	"sort"
	"strings"

	"github.com/CoReason-AI/coreason-search/internal/config"
	"github.com/CoReason-AI/coreason-search/internal/query"
	"github.com/CoReason-AI/coreason-search/internal/schema"
)

// Reranker re-scores hits against the query and returns the top_k best,
// as fresh copies, sorted by the new score descending.
type Reranker interface {
	Rerank(ctx context.Context, q schema.Query, hits []*schema.Hit, topK int) ([]*schema.Hit, error)
}

// ModelMock selects the length-scoring mock reranker.
const ModelMock = "mock"

// New selects a reranker implementation from configuration. The "mock"
// model name yields the deterministic length scorer used by fixtures;
// anything else gets the lexical overlap scorer.
func New(cfg config.RerankerConfig) Reranker {
	if strings.EqualFold(cfg.ModelName, ModelMock) {
		return &Mock{}
	}
	return &Lexical{model: cfg.ModelName}
}

// Lexical scores hits by query-term overlap. It stands in for a
// cross-encoder when no model endpoint is wired: deterministic, cheap,
// and dependency-free, but still query-sensitive.
type Lexical struct {
	model string
}

// Rerank scores each hit by the fraction of query terms appearing in its
// text, sorts descending, and returns the first topK as fresh copies.
// Ties keep the incoming order, so an uninformative query degrades to
// pass-through truncation.
func (r *Lexical) Rerank(ctx context.Context, q schema.Query, hits []*schema.Hit, topK int) ([]*schema.Hit, error) {
	if len(hits) == 0 {
		return []*schema.Hit{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query.SemanticText(q)))

	scored := make([]*schema.Hit, len(hits))
	for i, hit := range hits {
		clone := hit.Clone()
		clone.Score = overlapScore(hitText(hit), terms)
		scored[i] = clone
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return truncate(scored, topK), nil
}

// overlapScore is the fraction of query terms occurring in text.
func overlapScore(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// Mock simulates cross-encoder behavior by scoring on content length
// (score = len(content) * 0.01). It deliberately reorders input so tests
// can tell reranking ran.
type Mock struct{}

// Rerank scores by content length, sorts descending, truncates to topK.
func (r *Mock) Rerank(ctx context.Context, q schema.Query, hits []*schema.Hit, topK int) ([]*schema.Hit, error) {
	if len(hits) == 0 {
		return []*schema.Hit{}, nil
	}

	scored := make([]*schema.Hit, len(hits))
	for i, hit := range hits {
		clone := hit.Clone()
		content := ""
		if hit.Content != nil {
			content = *hit.Content
		}
		clone.Score = float64(len(content)) * 0.01
		scored[i] = clone
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return truncate(scored, topK), nil
}

func hitText(h *schema.Hit) string {
	if h.OriginalText != nil && *h.OriginalText != "" {
		return *h.OriginalText
	}
	if h.Content != nil {
		return *h.Content
	}
	return ""
}

func truncate(hits []*schema.Hit, topK int) []*schema.Hit {
	if topK >= 0 && len(hits) > topK {
		return hits[:topK]
	}
	return hits
}

var (
	_ Reranker = (*Lexical)(nil)
	_ Reranker = (*Mock)(nil)
)
