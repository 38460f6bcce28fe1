package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
)

// DocumentStore persists document rows in SQLite. WAL mode allows
// concurrent readers alongside the single writer connection.
type DocumentStore struct {
	mu         sync.RWMutex
	db         *sql.DB
	path       string
	generation int
	closed     bool
}

// OpenDocumentStore opens (or creates) the document database at path.
// An empty path opens an in-memory store for testing.
//
// An existing generation-1 table (no title/abstract columns) opens
// read-compatible: reads report those fields as nil, and writes of rows
// carrying them fail with ErrCodeSchemaGeneration.
func OpenDocumentStore(path string) (*DocumentStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer prevents lock contention under modernc.org/sqlite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &DocumentStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// initSchema creates missing tables and resolves the column generation of
// an existing documents table.
func (s *DocumentStore) initSchema() error {
	existing, err := s.tableExists("documents")
	if err != nil {
		return err
	}

	if !existing {
		schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS schema_info (
			generation INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS table_version (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL
		);
		CREATE TABLE documents (
			doc_id   TEXT PRIMARY KEY,
			content  TEXT NOT NULL DEFAULT '',
			title    TEXT,
			abstract TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			vector   BLOB
		);
		INSERT INTO schema_info (generation) VALUES (%d);
		INSERT OR IGNORE INTO table_version (id, version) VALUES (1, 0);
		`, SchemaGeneration)
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		s.generation = SchemaGeneration
		return nil
	}

	// Existing database: supporting tables may be missing on very old
	// files, create them without touching the documents table.
	support := `
	CREATE TABLE IF NOT EXISTS schema_info (
		generation INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS table_version (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO table_version (id, version) VALUES (1, 0);
	`
	if _, err := s.db.Exec(support); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	gen, err := s.detectGeneration()
	if err != nil {
		return err
	}
	s.generation = gen
	return nil
}

// detectGeneration reads schema_info, falling back to column inspection
// for databases written before schema_info existed.
func (s *DocumentStore) detectGeneration() (int, error) {
	var gen int
	err := s.db.QueryRow(`SELECT generation FROM schema_info LIMIT 1`).Scan(&gen)
	if err == nil {
		return gen, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to read schema generation: %w", err)
	}

	hasTitle, err := s.columnExists("documents", "title")
	if err != nil {
		return 0, err
	}
	gen = 1
	if hasTitle {
		gen = SchemaGeneration
	}
	if _, err := s.db.Exec(`INSERT INTO schema_info (generation) VALUES (?)`, gen); err != nil {
		return 0, fmt.Errorf("failed to record schema generation: %w", err)
	}
	return gen, nil
}

func (s *DocumentStore) tableExists(name string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query schema: %w", err)
	}
	return count > 0, nil
}

func (s *DocumentStore) columnExists(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Generation returns the column generation of the open table.
func (s *DocumentStore) Generation() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// DB exposes the underlying handle so the FTS5 backend can share the
// database file and its version counter.
func (s *DocumentStore) DB() *sql.DB {
	return s.db
}

// Add upserts document rows in one transaction and bumps the table
// version. Writing generation-2 fields into a generation-1 table fails
// with ErrCodeSchemaGeneration before any row is written.
func (s *DocumentStore) Add(ctx context.Context, rows []*DocumentRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if s.generation < SchemaGeneration {
		for _, row := range rows {
			if row.HasGen2Fields() {
				return cserrors.New(cserrors.ErrCodeSchemaGeneration,
					fmt.Sprintf("document %s carries title/abstract but table is generation %d; reindex required",
						row.DocID, s.generation), nil)
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var stmt *sql.Stmt
	if s.generation >= SchemaGeneration {
		stmt, err = tx.PrepareContext(ctx, `
			INSERT INTO documents (doc_id, content, title, abstract, metadata, vector)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(doc_id) DO UPDATE SET
				content = excluded.content,
				title = excluded.title,
				abstract = excluded.abstract,
				metadata = excluded.metadata,
				vector = excluded.vector`)
	} else {
		stmt, err = tx.PrepareContext(ctx, `
			INSERT INTO documents (doc_id, content, metadata, vector)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(doc_id) DO UPDATE SET
				content = excluded.content,
				metadata = excluded.metadata,
				vector = excluded.vector`)
	}
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		metadata := row.Metadata
		if metadata == "" {
			metadata = "{}"
		}
		blob := encodeVector(row.Vector)

		if s.generation >= SchemaGeneration {
			_, err = stmt.ExecContext(ctx, row.DocID, row.Content, row.Title, row.Abstract, metadata, blob)
		} else {
			_, err = stmt.ExecContext(ctx, row.DocID, row.Content, metadata, blob)
		}
		if err != nil {
			return fmt.Errorf("failed to write document %s: %w", row.DocID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE table_version SET version = version + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to bump table version: %w", err)
	}

	return tx.Commit()
}

// Get returns one document, or ErrCodeDocumentNotFound.
func (s *DocumentStore) Get(ctx context.Context, docID string) (*DocumentRow, error) {
	rows, err := s.GetMany(ctx, []string{docID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, cserrors.New(cserrors.ErrCodeDocumentNotFound,
			fmt.Sprintf("document %s not found", docID), nil)
	}
	return rows[0], nil
}

// GetMany returns the stored rows for the given ids, in id order, skipping
// ids that do not exist.
func (s *DocumentStore) GetMany(ctx context.Context, docIDs []string) ([]*DocumentRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if len(docIDs) == 0 {
		return []*DocumentRow{}, nil
	}

	byID := make(map[string]*DocumentRow, len(docIDs))
	for _, id := range docIDs {
		row, err := s.getOne(ctx, id)
		if err != nil {
			return nil, err
		}
		if row != nil {
			byID[id] = row
		}
	}

	results := make([]*DocumentRow, 0, len(byID))
	for _, id := range docIDs {
		if row, ok := byID[id]; ok {
			results = append(results, row)
			delete(byID, id)
		}
	}
	return results, nil
}

func (s *DocumentStore) getOne(ctx context.Context, docID string) (*DocumentRow, error) {
	var (
		row  DocumentRow
		blob []byte
	)

	var err error
	if s.generation >= SchemaGeneration {
		err = s.db.QueryRowContext(ctx,
			`SELECT doc_id, content, title, abstract, metadata, vector FROM documents WHERE doc_id = ?`, docID).
			Scan(&row.DocID, &row.Content, &row.Title, &row.Abstract, &row.Metadata, &blob)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT doc_id, content, metadata, vector FROM documents WHERE doc_id = ?`, docID).
			Scan(&row.DocID, &row.Content, &row.Metadata, &blob)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", docID, err)
	}

	row.Vector = decodeVector(blob)
	return &row, nil
}

// Count returns the number of stored documents.
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Version returns the monotonic table version, bumped once per Add
// transaction. Systematic runs record it as their snapshot id.
func (s *DocumentStore) Version(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var version int64
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM table_version WHERE id = 1`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read table version: %w", err)
	}
	return version, nil
}

// Ping checks database liveness for the health endpoint.
func (s *DocumentStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return s.db.PingContext(ctx)
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (s *DocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// encodeVector packs float32s as little-endian bytes.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks little-endian bytes into float32s.
func decodeVector(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
