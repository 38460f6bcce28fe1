package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CoReason-AI/coreason-search/internal/config"
	"github.com/CoReason-AI/coreason-search/internal/schema"
)

func textHit(id, text string) *schema.Hit {
	return &schema.Hit{
		DocID:        id,
		Content:      schema.Ptr(text),
		OriginalText: schema.Ptr(text),
	}
}

func TestNew_SelectsByModelName(t *testing.T) {
	assert.IsType(t, &Mock{}, New(config.RerankerConfig{ModelName: "mock"}))
	assert.IsType(t, &Mock{}, New(config.RerankerConfig{ModelName: "Mock"}))
	assert.IsType(t, &Lexical{}, New(config.RerankerConfig{ModelName: "BAAI/bge-reranker-v2-m3"}))
}

func TestLexical_RanksByTermOverlap(t *testing.T) {
	hits := []*schema.Hit{
		textHit("none", "completely unrelated material"),
		textHit("partial", "aspirin dosage study"),
		textHit("full", "aspirin and stroke prevention"),
	}
	r := &Lexical{}

	out, err := r.Rerank(context.Background(), schema.TextQuery("aspirin stroke"), hits, 3)
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, "full", out[0].DocID)
	assert.Equal(t, "partial", out[1].DocID)
	assert.Equal(t, "none", out[2].DocID)
	assert.InDelta(t, 1.0, out[0].Score, 1e-9)
	assert.InDelta(t, 0.5, out[1].Score, 1e-9)
	assert.InDelta(t, 0.0, out[2].Score, 1e-9)
}

func TestLexical_TruncatesToTopK(t *testing.T) {
	hits := []*schema.Hit{textHit("a", "x"), textHit("b", "x"), textHit("c", "x")}

	out, err := (&Lexical{}).Rerank(context.Background(), schema.TextQuery("x"), hits, 2)
	require.NoError(t, err)

	assert.Len(t, out, 2)
}

func TestLexical_YieldsFreshCopies(t *testing.T) {
	hit := textHit("a", "aspirin")
	hit.Score = 0.42

	out, err := (&Lexical{}).Rerank(context.Background(), schema.TextQuery("aspirin"), []*schema.Hit{hit}, 1)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.NotSame(t, hit, out[0])
	assert.Equal(t, 0.42, hit.Score, "input must not be mutated")
}

func TestMock_ScoresByContentLength(t *testing.T) {
	hits := []*schema.Hit{
		textHit("short", "abc"),
		textHit("long", "a much longer piece of content"),
	}

	out, err := (&Mock{}).Rerank(context.Background(), schema.TextQuery("ignored"), hits, 2)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, "long", out[0].DocID)
	assert.InDelta(t, 0.30, out[0].Score, 1e-9)
	assert.InDelta(t, 0.03, out[1].Score, 1e-9)
}

func TestRerank_EmptyHits(t *testing.T) {
	out, err := (&Lexical{}).Rerank(context.Background(), schema.TextQuery("q"), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = (&Mock{}).Rerank(context.Background(), schema.TextQuery("q"), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, out)
}
