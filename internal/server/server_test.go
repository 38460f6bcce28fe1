package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CoReason-AI/coreason-search/internal/config"
	"github.com/CoReason-AI/coreason-search/internal/embed"
	"github.com/CoReason-AI/coreason-search/internal/graph"
	"github.com/CoReason-AI/coreason-search/internal/retriever"
	"github.com/CoReason-AI/coreason-search/internal/schema"
	"github.com/CoReason-AI/coreason-search/internal/search"
	"github.com/CoReason-AI/coreason-search/internal/store"
)

// newTestServer stands up a full in-memory stack: mock embedder, SQLite
// document store with FTS5, HNSW index, and the demo graph.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	embedder := embed.NewMockEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })

	docs, err := store.OpenDocumentStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	fts, err := store.NewFTSBackend("sqlite", docs, "")
	require.NoError(t, err)

	index, err := store.NewVectorIndex(embedder.Dimensions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	rows := []*store.DocumentRow{
		{
			DocID:    "p1",
			Content:  "Pandemic preparedness and vaccine rollout strategies.",
			Title:    schema.Ptr("Pandemic preparedness"),
			Metadata: `{"year": 2021}`,
		},
		{
			DocID:    "p2",
			Content:  "Influenza vaccine efficacy in older adults.",
			Title:    schema.Ptr("Influenza vaccines"),
			Metadata: `{"year": 2019}`,
		},
		{
			DocID:    "p3",
			Content:  "Deep learning for protein structure prediction.",
			Title:    schema.Ptr("Protein folding"),
			Metadata: `{"year": 2023}`,
		},
	}
	require.NoError(t, docs.Add(ctx, rows))
	require.NoError(t, fts.Index(ctx, rows))

	ids := make([]string, len(rows))
	texts := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.DocID
		texts[i] = row.Content
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.NoError(t, index.Add(ctx, ids, vectors))

	gclient := graph.NewMemoryClient()
	graph.SeedDemo(gclient)

	cfg := config.NewSettings()
	dense := retriever.NewDense(embedder, index, docs, logger)
	sparse := retriever.NewSparse(fts, cfg.Search.SystematicBatchSize, logger)
	graphR := retriever.NewGraph(gclient, logger)

	engine, err := search.New(dense, sparse, graphR, cfg, logger)
	require.NoError(t, err)

	return New(engine, docs, embedder, logger)
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echoContentType, "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func TestServer_SearchReturnsRankedHits(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/search", `{
		"query": "vaccine",
		"strategies": ["fts", "dense"],
		"top_k": 3
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp schema.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.NotEmpty(t, resp.Hits)
	assert.Equal(t, len(resp.Hits), resp.TotalFound)
	assert.LessOrEqual(t, len(resp.Hits), 3)
	assert.Len(t, resp.ProvenanceHash, 64)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestServer_SearchValidationErrorIs400(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/search", `{"query": "vaccine", "strategies": []}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["code"])
	assert.NotEmpty(t, body["message"])
}

func TestServer_SearchMalformedBodyIs400(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/search", `{"query": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SearchUnknownStrategyIs400(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/search", `{"query": "q", "strategies": ["lucene"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SystematicStreamsNDJSON(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/search/systematic", `{
		"query": "vaccine",
		"strategies": ["fts"]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get(echoContentType))

	// Every non-empty line is one JSON hit.
	var hits []schema.Hit
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var h schema.Hit
		require.NoError(t, json.Unmarshal([]byte(line), &h), "line: %s", line)
		hits = append(hits, h)
	}
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Equal(t, schema.StrategyFTS, h.SourceStrategy)
		assert.NotEmpty(t, h.DocID)
	}
}

func TestServer_SystematicValidationErrorIs400(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/search/systematic", `{"query": "q", "strategies": ["fts"], "top_k": 0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_HealthReportsBackends(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, "mock", body["embedder"])
}

func TestServer_RequestIDIsPreserved(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "caller-supplied-id")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "caller-supplied-id", rec.Header().Get(HeaderRequestID))
}

func TestServer_SearchGraphStrategy(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/search", fmt.Sprintf(`{
		"query": %q,
		"strategies": ["graph"],
		"rerank_enabled": false,
		"distill_enabled": false
	}`, "Protein X"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp schema.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "paper_a", resp.Hits[0].DocID)
}
