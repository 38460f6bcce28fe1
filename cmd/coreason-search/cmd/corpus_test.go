package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
)

func writeCorpusFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCorpusFile_ParsesRows(t *testing.T) {
	path := writeCorpusFile(t, `{"doc_id": "d1", "content": "alpha", "title": "Alpha", "metadata": {"year": 2023}}
{"doc_id": "d2", "content": "beta"}

{"doc_id": "d3", "content": "gamma", "abstract": "long form"}
`)

	rows, err := readCorpusFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "d1", rows[0].DocID)
	require.NotNil(t, rows[0].Title)
	assert.Equal(t, "Alpha", *rows[0].Title)
	assert.JSONEq(t, `{"year": 2023}`, rows[0].Metadata)

	// Absent metadata becomes an empty object, absent title stays nil.
	assert.Equal(t, "{}", rows[1].Metadata)
	assert.Nil(t, rows[1].Title)

	require.NotNil(t, rows[2].Abstract)
	assert.Equal(t, "long form", *rows[2].Abstract)
}

func TestReadCorpusFile_MissingDocID(t *testing.T) {
	path := writeCorpusFile(t, `{"content": "orphan"}`)

	_, err := readCorpusFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doc_id is required")
}

func TestReadCorpusFile_MissingContent(t *testing.T) {
	path := writeCorpusFile(t, `{"doc_id": "d1"}`)

	_, err := readCorpusFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content is required")
}

func TestReadCorpusFile_InvalidJSONReportsLine(t *testing.T) {
	path := writeCorpusFile(t, `{"doc_id": "d1", "content": "ok"}
{broken`)

	_, err := readCorpusFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadCorpusFile_EmptyFile(t *testing.T) {
	path := writeCorpusFile(t, "\n\n")

	_, err := readCorpusFile(path)
	require.Error(t, err)
	assert.Equal(t, cserrors.ErrCodeMetadataMalformed, cserrors.GetCode(err))
}

func TestReadCorpusFile_MissingFile(t *testing.T) {
	_, err := readCorpusFile(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.Error(t, err)
}
