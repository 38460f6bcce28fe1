package retriever

import (
	"context"
	"fmt"
	"log/slog"

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
	"github.com/CoReason-AI/coreason-search/internal/filter"
	"github.com/CoReason-AI/coreason-search/internal/query"
	"github.com/CoReason-AI/coreason-search/internal/schema"
	"github.com/CoReason-AI/coreason-search/internal/store"
)

// DefaultSystematicBatchSize is the page size for systematic streaming.
const DefaultSystematicBatchSize = 1000

// Sparse retrieves via the full-text backend. Beyond the bounded mode it
// exposes a stateless paging cursor for systematic enumeration.
type Sparse struct {
	fts       store.FTSBackend
	batchSize int
	logger    *slog.Logger
}

var _ Interface = (*Sparse)(nil)

// NewSparse wires the sparse strategy. batchSize <= 0 selects the
// default systematic page size.
func NewSparse(fts store.FTSBackend, batchSize int, logger *slog.Logger) *Sparse {
	if batchSize <= 0 {
		batchSize = DefaultSystematicBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sparse{fts: fts, batchSize: batchSize, logger: logger}
}

// Name returns the strategy tag.
func (s *Sparse) Name() string {
	return string(schema.StrategyFTS)
}

// Version exposes the backend snapshot version for systematic audits.
func (s *Sparse) Version(ctx context.Context) (int64, error) {
	return s.fts.Version(ctx)
}

// Retrieve executes the normalized sparse expression with the oversampled
// bound, post-filters, and truncates to top_k.
func (s *Sparse) Retrieve(ctx context.Context, req *schema.SearchRequest) ([]*schema.Hit, error) {
	expr := query.ToSparseExpression(req.Query)

	limit := oversampleLimit(req.TopK, len(req.Filters) > 0)
	rows, err := s.fts.Search(ctx, expr, limit, 0)
	if err != nil {
		return nil, cserrors.BackendError(fmt.Sprintf("fts: search failed: %v", err), err)
	}

	hits := make([]*schema.Hit, 0, len(rows))
	for i := range rows {
		hit := s.mapRow(&rows[i])
		if len(req.Filters) > 0 && !filter.Matches(hit.Metadata, req.Filters) {
			continue
		}
		hits = append(hits, hit)
	}

	return truncate(hits, req.TopK), nil
}

// RetrieveSystematic returns a stateless paging cursor over every row the
// expression matches. Each page is requested as (limit, offset); the
// cursor terminates when a page comes back short.
func (s *Sparse) RetrieveSystematic(ctx context.Context, req *schema.SearchRequest) *Cursor {
	return &Cursor{
		sparse:  s,
		expr:    query.ToSparseExpression(req.Query),
		filters: req.Filters,
		ctx:     ctx,
	}
}

func (s *Sparse) mapRow(row *store.FTSRow) *schema.Hit {
	return &schema.Hit{
		DocID:          row.DocID,
		Content:        contentPtr(row.Content),
		Score:          row.Score,
		SourceStrategy: schema.StrategyFTS,
		Metadata:       parseMetadata(s.logger, row.DocID, row.Metadata),
	}
}

// Cursor pages through systematic results. Not safe for concurrent use.
type Cursor struct {
	sparse  *Sparse
	expr    string
	filters map[string]any
	ctx     context.Context

	buffer []*schema.Hit
	offset int
	done   bool
	err    error
}

// Next returns the next filtered hit. ok is false when the cursor is
// exhausted or failed; check Err afterwards.
func (c *Cursor) Next() (*schema.Hit, bool) {
	for {
		if len(c.buffer) > 0 {
			hit := c.buffer[0]
			c.buffer = c.buffer[1:]
			return hit, true
		}
		if c.done || c.err != nil {
			return nil, false
		}
		c.fetchPage()
	}
}

// Err reports the failure that stopped the cursor, if any.
func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) fetchPage() {
	if err := c.ctx.Err(); err != nil {
		c.err = err
		return
	}

	rows, err := c.sparse.fts.Search(c.ctx, c.expr, c.sparse.batchSize, c.offset)
	if err != nil {
		c.err = cserrors.BackendError(fmt.Sprintf("fts: systematic page failed: %v", err), err)
		return
	}

	// Offsets advance by the page size regardless of filtering; a short
	// page means the backend is exhausted.
	c.offset += c.sparse.batchSize
	if len(rows) < c.sparse.batchSize {
		c.done = true
	}

	for i := range rows {
		hit := c.sparse.mapRow(&rows[i])
		if len(c.filters) > 0 && !filter.Matches(hit.Metadata, c.filters) {
			continue
		}
		c.buffer = append(c.buffer, hit)
	}
}
