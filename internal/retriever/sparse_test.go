package retriever

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CoReason-AI/coreason-search/internal/schema"
	"github.com/CoReason-AI/coreason-search/internal/store"
)

// fakeFTS is a scripted FTSBackend: it serves rows from a fixed slice
// with (limit, offset) paging and records the calls it saw.
type fakeFTS struct {
	rows    []store.FTSRow
	calls   [][2]int // recorded (limit, offset)
	lastExp string
	err     error
	version int64
}

func (f *fakeFTS) Search(_ context.Context, expr string, limit, offset int) ([]store.FTSRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastExp = expr
	f.calls = append(f.calls, [2]int{limit, offset})

	if offset >= len(f.rows) {
		return []store.FTSRow{}, nil
	}
	end := offset + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[offset:end], nil
}

func (f *fakeFTS) Index(context.Context, []*store.DocumentRow) error { return nil }

func (f *fakeFTS) Version(context.Context) (int64, error) { return f.version, nil }

func (f *fakeFTS) Close() error { return nil }

func valRows(vals ...int) []store.FTSRow {
	rows := make([]store.FTSRow, len(vals))
	for i, v := range vals {
		rows[i] = store.FTSRow{
			DocID:    fmt.Sprintf("doc-%d", i),
			Content:  "record",
			Metadata: fmt.Sprintf(`{"val": %d}`, v),
			Score:    1.0,
		}
	}
	return rows
}

func TestSparse_RetrieveTruncatesToTopK(t *testing.T) {
	// Given a backend with more matches than requested
	fts := &fakeFTS{rows: valRows(1, 2, 3, 4, 5)}
	s := NewSparse(fts, 0, nil)

	req := schema.NewSearchRequest(schema.TextQuery("record"), schema.StrategyFTS)
	req.TopK = 2

	// When retrieving
	hits, err := s.Retrieve(context.Background(), req)
	require.NoError(t, err)

	// Then the result is bounded and the backend saw limit = top_k
	assert.Len(t, hits, 2)
	require.Len(t, fts.calls, 1)
	assert.Equal(t, [2]int{2, 0}, fts.calls[0])
}

func TestSparse_RetrieveOversamplesWithFilters(t *testing.T) {
	fts := &fakeFTS{rows: valRows(5, 15, 5, 25)}
	s := NewSparse(fts, 0, nil)

	req := schema.NewSearchRequest(schema.TextQuery("record"), schema.StrategyFTS)
	req.TopK = 2
	req.Filters = map[string]any{"val": map[string]any{"$gt": 10}}

	hits, err := s.Retrieve(context.Background(), req)
	require.NoError(t, err)

	// max(top_k*10, 100) = 100, and only passing rows survive
	require.Len(t, fts.calls, 1)
	assert.Equal(t, [2]int{100, 0}, fts.calls[0])
	require.Len(t, hits, 2)
	assert.Equal(t, "doc-1", hits[0].DocID)
	assert.Equal(t, "doc-3", hits[1].DocID)
}

func TestSparse_RetrieveUsesSparseExpression(t *testing.T) {
	fts := &fakeFTS{}
	s := NewSparse(fts, 0, nil)

	req := schema.NewSearchRequest(
		schema.TextQuery(`Pandemic[Ti]`), schema.StrategyFTS)

	_, err := s.Retrieve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "title:Pandemic", fts.lastExp)
}

func TestSparse_RetrieveBackendError(t *testing.T) {
	fts := &fakeFTS{err: fmt.Errorf("index absent")}
	s := NewSparse(fts, 0, nil)

	req := schema.NewSearchRequest(schema.TextQuery("x"), schema.StrategyFTS)

	_, err := s.Retrieve(context.Background(), req)
	assert.Error(t, err)
}

func TestSparse_SystematicPagingWithFilter(t *testing.T) {
	// Given pages [5,15,5], [5,5,5], [20,30,5], [] and a $gt filter
	fts := &fakeFTS{rows: valRows(5, 15, 5, 5, 5, 5, 20, 30, 5)}
	s := NewSparse(fts, 3, nil)

	req := schema.NewSearchRequest(schema.TextQuery("record"), schema.StrategyFTS)
	req.Filters = map[string]any{"val": map[string]any{"$gt": 10}}

	// When draining the cursor
	cursor := s.RetrieveSystematic(context.Background(), req)
	var ids []string
	for {
		hit, ok := cursor.Next()
		if !ok {
			break
		}
		ids = append(ids, hit.DocID)
	}

	// Then exactly the passing rows stream out, in backend order
	require.NoError(t, cursor.Err())
	assert.Equal(t, []string{"doc-1", "doc-6", "doc-7"}, ids)
}

func TestSparse_SystematicOffsetsAdvanceByBatchSize(t *testing.T) {
	fts := &fakeFTS{rows: valRows(1, 2, 3, 4, 5, 6, 7)}
	s := NewSparse(fts, 3, nil)

	req := schema.NewSearchRequest(schema.TextQuery("record"), schema.StrategyFTS)

	cursor := s.RetrieveSystematic(context.Background(), req)
	count := 0
	for {
		if _, ok := cursor.Next(); !ok {
			break
		}
		count++
	}

	require.NoError(t, cursor.Err())
	assert.Equal(t, 7, count)
	// Pages at offsets 0, 3, 6; the short page at 6 terminates
	assert.Equal(t, [][2]int{{3, 0}, {3, 3}, {3, 6}}, fts.calls)
}

func TestSparse_SystematicExactMultipleFetchesEmptyPage(t *testing.T) {
	fts := &fakeFTS{rows: valRows(1, 2, 3)}
	s := NewSparse(fts, 3, nil)

	req := schema.NewSearchRequest(schema.TextQuery("record"), schema.StrategyFTS)

	cursor := s.RetrieveSystematic(context.Background(), req)
	count := 0
	for {
		if _, ok := cursor.Next(); !ok {
			break
		}
		count++
	}

	require.NoError(t, cursor.Err())
	assert.Equal(t, 3, count)
	// A full page forces one more request, which comes back empty
	assert.Equal(t, [][2]int{{3, 0}, {3, 3}}, fts.calls)
}

func TestSparse_SystematicContextCancellation(t *testing.T) {
	fts := &fakeFTS{rows: valRows(1, 2, 3, 4, 5, 6)}
	s := NewSparse(fts, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := schema.NewSearchRequest(schema.TextQuery("record"), schema.StrategyFTS)

	cursor := s.RetrieveSystematic(ctx, req)
	_, ok := cursor.Next()
	require.True(t, ok)
	_, ok = cursor.Next()
	require.True(t, ok)

	cancel()
	// The buffered page drains, then the next fetch fails
	_, ok = cursor.Next()
	require.False(t, ok)
	assert.ErrorIs(t, cursor.Err(), context.Canceled)
}

func TestSparse_MalformedMetadataBecomesEmptyMap(t *testing.T) {
	fts := &fakeFTS{rows: []store.FTSRow{
		{DocID: "bad", Content: "text", Metadata: `{not json`},
	}}
	s := NewSparse(fts, 0, nil)

	req := schema.NewSearchRequest(schema.TextQuery("text"), schema.StrategyFTS)

	hits, err := s.Retrieve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.NotNil(t, hits[0].Metadata)
	assert.Empty(t, hits[0].Metadata)
}

func TestOversampleLimit(t *testing.T) {
	assert.Equal(t, 5, oversampleLimit(5, false))
	assert.Equal(t, 100, oversampleLimit(5, true))
	assert.Equal(t, 200, oversampleLimit(20, true))
}
