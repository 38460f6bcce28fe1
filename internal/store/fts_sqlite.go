package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// SQLiteFTS is the default sparse backend: an FTS5 virtual table living in
// the same database file as the document store, so snapshot versions come
// from the shared table_version counter.
type SQLiteFTS struct {
	mu     sync.RWMutex
	store  *DocumentStore
	db     *sql.DB
	closed bool
}

var _ FTSBackend = (*SQLiteFTS)(nil)

// NewSQLiteFTS creates the FTS5 index inside the document store's
// database.
func NewSQLiteFTS(store *DocumentStore) (*SQLiteFTS, error) {
	f := &SQLiteFTS{store: store, db: store.DB()}
	if err := f.initSchema(); err != nil {
		return nil, err
	}
	return f, nil
}

// initSchema creates the FTS5 virtual table. Field-qualified expressions
// from the query normalizer (title:..., abstract:..., mesh_terms:...)
// map directly onto FTS5 column filters.
func (f *SQLiteFTS) initSchema() error {
	schema := `
	CREATE VIRTUAL TABLE IF NOT EXISTS fts_documents USING fts5(
		doc_id UNINDEXED,
		title,
		abstract,
		content,
		mesh_terms,
		tokenize='unicode61'
	);
	`
	if _, err := f.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize FTS schema: %w", err)
	}
	return nil
}

// Index adds document rows to the FTS index. Existing entries for a
// doc_id are replaced.
func (f *SQLiteFTS) Index(ctx context.Context, rows []*DocumentRow) error {
	if len(rows) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("index is closed")
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// FTS5 virtual tables have no REPLACE, so delete first.
	deleteStmt, err := tx.PrepareContext(ctx, `DELETE FROM fts_documents WHERE doc_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete: %w", err)
	}
	defer deleteStmt.Close()

	insertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fts_documents (doc_id, title, abstract, content, mesh_terms)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insertStmt.Close()

	for _, row := range rows {
		if _, err := deleteStmt.ExecContext(ctx, row.DocID); err != nil {
			return fmt.Errorf("failed to replace document %s: %w", row.DocID, err)
		}
		_, err := insertStmt.ExecContext(ctx,
			row.DocID,
			stringOrEmpty(row.Title),
			stringOrEmpty(row.Abstract),
			row.Content,
			meshTermsText(row.Metadata))
		if err != nil {
			return fmt.Errorf("failed to index document %s: %w", row.DocID, err)
		}
	}

	return tx.Commit()
}

// Search evaluates a field-qualified boolean expression with paging.
// FTS5 bm25() returns negative values where lower is better; scores are
// negated so higher means better.
func (f *SQLiteFTS) Search(ctx context.Context, expr string, limit, offset int) ([]FTSRow, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(expr) == "" {
		return []FTSRow{}, nil
	}

	query := `
		SELECT f.doc_id, bm25(fts_documents) AS score,
		       d.content, d.metadata, d.title, d.abstract
		FROM fts_documents f
		JOIN documents d ON d.doc_id = f.doc_id
		WHERE fts_documents MATCH ?
		ORDER BY score
		LIMIT ? OFFSET ?
	`
	if f.store.Generation() < SchemaGeneration {
		query = `
		SELECT f.doc_id, bm25(fts_documents) AS score,
		       d.content, d.metadata, NULL, NULL
		FROM fts_documents f
		JOIN documents d ON d.doc_id = f.doc_id
		WHERE fts_documents MATCH ?
		ORDER BY score
		LIMIT ? OFFSET ?
	`
	}

	rows, err := f.db.QueryContext(ctx, query, expr, limit, offset)
	if err != nil {
		// FTS5 reports malformed match expressions as errors; treat
		// them as no results, matching an empty query.
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return []FTSRow{}, nil
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var results []FTSRow
	for rows.Next() {
		var (
			r     FTSRow
			score float64
		)
		if err := rows.Scan(&r.DocID, &score, &r.Content, &r.Metadata, &r.Title, &r.Abstract); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Score = -score
		results = append(results, r)
	}
	if results == nil {
		results = []FTSRow{}
	}

	return results, rows.Err()
}

// Version returns the shared table version.
func (f *SQLiteFTS) Version(ctx context.Context) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return 0, fmt.Errorf("index is closed")
	}
	return f.store.Version(ctx)
}

// Close marks the backend closed. The shared database handle is owned by
// the document store and stays open.
func (f *SQLiteFTS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// meshTermsText extracts the mesh_terms list from the metadata JSON and
// joins it for indexing. Malformed metadata indexes as empty.
func meshTermsText(metadata string) string {
	if metadata == "" {
		return ""
	}
	var parsed struct {
		MeshTerms []string `json:"mesh_terms"`
	}
	if err := json.Unmarshal([]byte(metadata), &parsed); err != nil {
		return ""
	}
	return strings.Join(parsed.MeshTerms, " ")
}
