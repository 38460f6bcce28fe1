package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CoReason-AI/coreason-search/internal/embed"
	"github.com/CoReason-AI/coreason-search/internal/schema"
	"github.com/CoReason-AI/coreason-search/internal/store"
)

// newDenseFixture indexes the given rows with mock embeddings of their
// content and returns a wired dense retriever.
func newDenseFixture(t *testing.T, rows []*store.DocumentRow) *Dense {
	t.Helper()
	ctx := context.Background()

	embedder := embed.NewMockEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })

	docs, err := store.OpenDocumentStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	index, err := store.NewVectorIndex(embedder.Dimensions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	if len(rows) > 0 {
		require.NoError(t, docs.Add(ctx, rows))

		ids := make([]string, len(rows))
		texts := make([]string, len(rows))
		for i, row := range rows {
			ids[i] = row.DocID
			texts[i] = row.Content
		}
		vectors, err := embedder.EmbedBatch(ctx, texts)
		require.NoError(t, err)
		require.NoError(t, index.Add(ctx, ids, vectors))
	}

	return NewDense(embedder, index, docs, nil)
}

func TestDense_RetrieveRanksSimilarContentFirst(t *testing.T) {
	// Given documents about different topics
	d := newDenseFixture(t, []*store.DocumentRow{
		{DocID: "liver", Content: "drug induced liver injury and hepatotoxicity", Metadata: `{"year": 2023}`},
		{DocID: "heart", Content: "cardiac arrhythmia treatment outcomes", Metadata: `{"year": 2022}`},
	})

	req := schema.NewSearchRequest(schema.TextQuery("liver injury from drugs"), schema.StrategyDense)
	req.TopK = 2

	// When retrieving
	hits, err := d.Retrieve(context.Background(), req)
	require.NoError(t, err)

	// Then the on-topic document ranks first with strategy and metadata set
	require.Len(t, hits, 2)
	assert.Equal(t, "liver", hits[0].DocID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, schema.StrategyDense, hits[0].SourceStrategy)
	assert.Equal(t, float64(2023), hits[0].Metadata["year"])
	require.NotNil(t, hits[0].Content)
}

func TestDense_RetrieveAppliesFilters(t *testing.T) {
	d := newDenseFixture(t, []*store.DocumentRow{
		{DocID: "old", Content: "aspirin trial", Metadata: `{"year": 2019}`},
		{DocID: "new", Content: "aspirin trial followup", Metadata: `{"year": 2024}`},
	})

	req := schema.NewSearchRequest(schema.TextQuery("aspirin trial"), schema.StrategyDense)
	req.Filters = map[string]any{"year": map[string]any{"$gte": 2020}}

	hits, err := d.Retrieve(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].DocID)
}

func TestDense_RetrieveEmptyIndex(t *testing.T) {
	d := newDenseFixture(t, nil)

	req := schema.NewSearchRequest(schema.TextQuery("anything"), schema.StrategyDense)

	hits, err := d.Retrieve(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDense_RetrieveTruncatesToTopK(t *testing.T) {
	d := newDenseFixture(t, []*store.DocumentRow{
		{DocID: "a", Content: "shared topic one"},
		{DocID: "b", Content: "shared topic two"},
		{DocID: "c", Content: "shared topic three"},
	})

	req := schema.NewSearchRequest(schema.TextQuery("shared topic"), schema.StrategyDense)
	req.TopK = 2

	hits, err := d.Retrieve(context.Background(), req)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hits), 2)
}
