package store

import "fmt"

// FTSBackendName selects the sparse index implementation.
type FTSBackendName string

const (
	// FTSBackendSQLite uses SQLite FTS5 inside the document database
	// (default; shares the snapshot version counter).
	FTSBackendSQLite FTSBackendName = "sqlite"

	// FTSBackendBleve uses a Bleve index directory next to the database.
	FTSBackendBleve FTSBackendName = "bleve"
)

// NewFTSBackend creates the configured sparse backend. The bleve backend
// stores its index at databasePath + ".bleve"; with an empty path it runs
// in memory.
func NewFTSBackend(backend string, docs *DocumentStore, databasePath string) (FTSBackend, error) {
	switch FTSBackendName(backend) {
	case FTSBackendSQLite, "":
		return NewSQLiteFTS(docs)

	case FTSBackendBleve:
		path := ""
		if databasePath != "" {
			path = databasePath + ".bleve"
		}
		return NewBleveFTS(path)

	default:
		return nil, fmt.Errorf("unknown FTS backend: %s (valid options: sqlite, bleve)", backend)
	}
}
