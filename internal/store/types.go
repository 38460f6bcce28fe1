// Package store persists documents and serves the sparse and dense
// indexes behind the retrieval strategies.
//
// The document table lives in SQLite (modernc.org/sqlite, no CGO). Sparse
// full-text search runs either on SQLite FTS5 (default, shares the
// document database) or on a Bleve index. Dense retrieval runs on an
// in-process HNSW graph.
package store

import (
	"context"
	"errors"
)

// SchemaGeneration is the column generation written by this build.
// Generation 1 tables predate the title/abstract columns; they stay
// readable, but rows carrying those fields cannot be written into them.
const SchemaGeneration = 2

// ErrVersionUnavailable reports that an FTS backend cannot produce a
// snapshot version. Callers map it to the sentinel snapshot id -1.
var ErrVersionUnavailable = errors.New("store: index version unavailable")

// DocumentRow is one persisted document.
type DocumentRow struct {
	DocID    string
	Vector   []float32
	Content  string
	Title    *string
	Abstract *string
	// Metadata is a JSON-encoded object.
	Metadata string
}

// HasGen2Fields reports whether the row uses columns introduced in
// generation 2.
func (r *DocumentRow) HasGen2Fields() bool {
	return r.Title != nil || r.Abstract != nil
}

// FTSRow is one sparse search result with enough of the document to build
// a hit without a second lookup.
type FTSRow struct {
	DocID    string
	Content  string
	Title    *string
	Abstract *string
	Metadata string
	Score    float64
}

// FTSBackend is the sparse full-text index consumed by the sparse
// retriever. Search evaluates a field-qualified boolean expression with
// (limit, offset) paging. Version returns a monotonic snapshot id or
// ErrVersionUnavailable.
type FTSBackend interface {
	Search(ctx context.Context, expr string, limit, offset int) ([]FTSRow, error)
	Index(ctx context.Context, rows []*DocumentRow) error
	Version(ctx context.Context) (int64, error)
	Close() error
}

// VectorResult is one dense search result.
type VectorResult struct {
	DocID    string
	Distance float32
	Score    float32
}
