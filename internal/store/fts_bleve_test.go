package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBleveFixture(t *testing.T, rows []*DocumentRow) *BleveFTS {
	t.Helper()
	fts, err := NewBleveFTS("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = fts.Close() })

	if len(rows) > 0 {
		require.NoError(t, fts.Index(context.Background(), rows))
	}
	return fts
}

func TestBleveFTS_FieldQualifiedSearch(t *testing.T) {
	// Given an indexed corpus
	fts := newBleveFixture(t, covidRows())

	// When searching a title-qualified term
	rows, err := fts.Search(context.Background(), `title:pandemic`, 10, 0)
	require.NoError(t, err)

	// Then the match carries its stored fields
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].DocID)
	assert.Equal(t, "A pandemic preparedness review.", rows[0].Content)
	require.NotNil(t, rows[0].Title)
	assert.Equal(t, "Pandemic response planning", *rows[0].Title)
	assert.Contains(t, rows[0].Metadata, "2021")
	assert.Greater(t, rows[0].Score, 0.0)
}

func TestBleveFTS_Paging(t *testing.T) {
	rows := []*DocumentRow{
		{DocID: "a", Content: "shared term alpha"},
		{DocID: "b", Content: "shared term beta"},
		{DocID: "c", Content: "shared term gamma"},
	}
	fts := newBleveFixture(t, rows)
	ctx := context.Background()

	page1, err := fts.Search(ctx, `content:shared`, 2, 0)
	require.NoError(t, err)
	page2, err := fts.Search(ctx, `content:shared`, 2, 2)
	require.NoError(t, err)

	assert.Len(t, page1, 2)
	assert.Len(t, page2, 1)

	seen := map[string]bool{}
	for _, r := range append(page1, page2...) {
		seen[r.DocID] = true
	}
	assert.Len(t, seen, 3)
}

func TestBleveFTS_EmptyExpression(t *testing.T) {
	fts := newBleveFixture(t, covidRows())

	rows, err := fts.Search(context.Background(), "", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBleveFTS_VersionUnavailable(t *testing.T) {
	fts := newBleveFixture(t, nil)

	_, err := fts.Version(context.Background())
	assert.ErrorIs(t, err, ErrVersionUnavailable)
}

func TestBleveFTS_NoTitleStaysNil(t *testing.T) {
	fts := newBleveFixture(t, []*DocumentRow{
		{DocID: "bare", Content: "untitled record"},
	})

	rows, err := fts.Search(context.Background(), `content:untitled`, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Title)
	assert.Nil(t, rows[0].Abstract)
}

func TestNewFTSBackend(t *testing.T) {
	docs, err := OpenDocumentStore("")
	require.NoError(t, err)
	defer func() { _ = docs.Close() }()

	sqlite, err := NewFTSBackend("sqlite", docs, "")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteFTS{}, sqlite)

	bleve, err := NewFTSBackend("bleve", docs, "")
	require.NoError(t, err)
	assert.IsType(t, &BleveFTS{}, bleve)
	_ = bleve.Close()

	_, err = NewFTSBackend("lucene", docs, "")
	assert.Error(t, err)
}
