package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
)

func strPtr(s string) *string { return &s }

func TestDocumentStore_RoundTrip(t *testing.T) {
	// Given a fresh store
	s, err := OpenDocumentStore("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	row := &DocumentRow{
		DocID:    "doc-1",
		Vector:   []float32{0.1, 0.2, 0.3},
		Content:  "aspirin reduces inflammation",
		Title:    strPtr("Aspirin"),
		Abstract: strPtr("A study of aspirin."),
		Metadata: `{"year": 2024}`,
	}

	// When writing and reading back
	require.NoError(t, s.Add(ctx, []*DocumentRow{row}))
	got, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)

	// Then every field survives
	assert.Equal(t, "doc-1", got.DocID)
	assert.Equal(t, "aspirin reduces inflammation", got.Content)
	require.NotNil(t, got.Title)
	assert.Equal(t, "Aspirin", *got.Title)
	require.NotNil(t, got.Abstract)
	assert.Equal(t, "A study of aspirin.", *got.Abstract)
	assert.Equal(t, `{"year": 2024}`, got.Metadata)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, got.Vector, 1e-6)
}

func TestDocumentStore_UpsertReplaces(t *testing.T) {
	s, err := OpenDocumentStore("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []*DocumentRow{{DocID: "doc-1", Content: "old"}}))
	require.NoError(t, s.Add(ctx, []*DocumentRow{{DocID: "doc-1", Content: "new"}}))

	got, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Content)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDocumentStore_GetMissing(t *testing.T) {
	s, err := OpenDocumentStore("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, cserrors.ErrCodeDocumentNotFound, cserrors.GetCode(err))
}

func TestDocumentStore_GetManySkipsMissing(t *testing.T) {
	s, err := OpenDocumentStore("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []*DocumentRow{
		{DocID: "a", Content: "one"},
		{DocID: "b", Content: "two"},
	}))

	rows, err := s.GetMany(ctx, []string{"b", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Requested id order is preserved
	assert.Equal(t, "b", rows[0].DocID)
	assert.Equal(t, "a", rows[1].DocID)
}

func TestDocumentStore_VersionBumpsPerAddTransaction(t *testing.T) {
	s, err := OpenDocumentStore("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	v0, err := s.Version(ctx)
	require.NoError(t, err)

	// One transaction with two rows bumps once
	require.NoError(t, s.Add(ctx, []*DocumentRow{
		{DocID: "a"}, {DocID: "b"},
	}))
	v1, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, v0+1, v1)

	require.NoError(t, s.Add(ctx, []*DocumentRow{{DocID: "c"}}))
	v2, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, v0+2, v2)
}

// createGen1Database writes a pre-title/abstract documents table directly.
func createGen1Database(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE documents (
			doc_id   TEXT PRIMARY KEY,
			content  TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}',
			vector   BLOB
		);
		INSERT INTO documents (doc_id, content, metadata) VALUES
			('old-1', 'legacy content', '{"year": 2019}');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestDocumentStore_OldGenerationReadsSucceed(t *testing.T) {
	// Given a database created before the title/abstract columns
	path := filepath.Join(t.TempDir(), "old.db")
	createGen1Database(t, path)

	// When opening it
	s, err := OpenDocumentStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	// Then reads succeed with nil title/abstract
	assert.Equal(t, 1, s.Generation())
	got, err := s.Get(context.Background(), "old-1")
	require.NoError(t, err)
	assert.Equal(t, "legacy content", got.Content)
	assert.Nil(t, got.Title)
	assert.Nil(t, got.Abstract)
}

func TestDocumentStore_OldGenerationRejectsNewColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	createGen1Database(t, path)

	s, err := OpenDocumentStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	// Writing a row with a title must fail loudly
	err = s.Add(ctx, []*DocumentRow{{DocID: "new-1", Title: strPtr("T")}})
	require.Error(t, err)
	assert.Equal(t, cserrors.ErrCodeSchemaGeneration, cserrors.GetCode(err))

	var se *cserrors.SearchError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, cserrors.SeverityFatal, se.Severity)

	// Plain rows still write fine
	require.NoError(t, s.Add(ctx, []*DocumentRow{{DocID: "new-2", Content: "plain"}}))
}

func TestDocumentStore_Ping(t *testing.T) {
	s, err := OpenDocumentStore("")
	require.NoError(t, err)

	assert.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}

func TestVectorBlobRoundTrip(t *testing.T) {
	in := []float32{1.5, -2.25, 0, 3.14159}
	out := decodeVector(encodeVector(in))
	assert.Equal(t, in, out)

	assert.Nil(t, encodeVector(nil))
	assert.Nil(t, decodeVector(nil))
}
