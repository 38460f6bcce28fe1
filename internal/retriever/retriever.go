// Package retriever holds the strategy adapters that turn one request
// into ranked hits against a particular backend.
package retriever

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/CoReason-AI/coreason-search/internal/schema"
)

// Interface is one retrieval strategy. Retrieve returns ranked hits for a
// request; implementations never mutate the request.
type Interface interface {
	Name() string
	Retrieve(ctx context.Context, req *schema.SearchRequest) ([]*schema.Hit, error)
}

// minOversample is the floor applied when filters force oversampling.
const minOversample = 100

// oversampleLimit computes the backend fetch bound: top_k alone when no
// filters apply, otherwise enough headroom to survive post-filter
// attrition.
func oversampleLimit(topK int, hasFilters bool) int {
	if !hasFilters {
		return topK
	}
	limit := topK * 10
	if limit < minOversample {
		limit = minOversample
	}
	return limit
}

// parseMetadata decodes the stored metadata JSON. Malformed data maps to
// an empty object and a warning rather than a failed retrieval.
func parseMetadata(logger *slog.Logger, docID, raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		logger.Warn("metadata_parse_failed",
			slog.String("doc_id", docID),
			slog.String("error", err.Error()))
		return map[string]any{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return metadata
}

// contentPtr returns nil for empty content so hits omit the field.
func contentPtr(content string) *string {
	if content == "" {
		return nil
	}
	return &content
}

// truncate bounds a hit list to at most n entries.
func truncate(hits []*schema.Hit, n int) []*schema.Hit {
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}
