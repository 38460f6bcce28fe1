package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// BleveFTS is the alternative sparse backend. It keeps its own index
// directory and has no table version, so systematic runs over it record
// snapshot id -1.
type BleveFTS struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ FTSBackend = (*BleveFTS)(nil)

// bleveDocument is the indexed document shape.
type bleveDocument struct {
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Content   string   `json:"content"`
	MeshTerms []string `json:"mesh_terms"`
	Metadata  string   `json:"metadata"`
	HasTitle  bool     `json:"has_title"`
}

// NewBleveFTS opens (or creates) a Bleve index at path. An empty path
// creates an in-memory index for testing.
func NewBleveFTS(path string) (*BleveFTS, error) {
	mapping := buildBleveMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(mapping)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, mapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}

	return &BleveFTS{index: idx, path: path}, nil
}

func buildBleveMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()

	indexed := bleve.NewTextFieldMapping()
	indexed.Store = true
	docMapping.AddFieldMappingsAt("title", indexed)
	docMapping.AddFieldMappingsAt("abstract", indexed)
	docMapping.AddFieldMappingsAt("content", indexed)
	docMapping.AddFieldMappingsAt("mesh_terms", indexed)

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false
	storedOnly.Store = true
	docMapping.AddFieldMappingsAt("metadata", storedOnly)

	hasTitle := bleve.NewBooleanFieldMapping()
	hasTitle.Store = true
	hasTitle.Index = false
	docMapping.AddFieldMappingsAt("has_title", hasTitle)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Index adds document rows to the index.
func (b *BleveFTS) Index(ctx context.Context, rows []*DocumentRow) error {
	if len(rows) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, row := range rows {
		doc := bleveDocument{
			Title:     stringOrEmpty(row.Title),
			Abstract:  stringOrEmpty(row.Abstract),
			Content:   row.Content,
			MeshTerms: meshTermsList(row.Metadata),
			Metadata:  row.Metadata,
			HasTitle:  row.Title != nil,
		}
		if err := batch.Index(row.DocID, doc); err != nil {
			return fmt.Errorf("failed to batch document %s: %w", row.DocID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index batch: %w", err)
	}
	return nil
}

// Search evaluates the expression with bleve's query-string syntax and
// (limit, offset) paging.
func (b *BleveFTS) Search(ctx context.Context, expr string, limit, offset int) ([]FTSRow, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if expr == "" {
		return []FTSRow{}, nil
	}

	query := bleve.NewQueryStringQuery(expr)
	req := bleve.NewSearchRequestOptions(query, limit, offset, false)
	req.Fields = []string{"*"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	rows := make([]FTSRow, 0, len(result.Hits))
	for _, hit := range result.Hits {
		row := FTSRow{
			DocID: hit.ID,
			Score: hit.Score,
		}
		if content, ok := hit.Fields["content"].(string); ok {
			row.Content = content
		}
		if metadata, ok := hit.Fields["metadata"].(string); ok {
			row.Metadata = metadata
		}
		if hasTitle, ok := hit.Fields["has_title"].(bool); ok && hasTitle {
			if title, ok := hit.Fields["title"].(string); ok {
				row.Title = &title
			}
			if abstract, ok := hit.Fields["abstract"].(string); ok {
				row.Abstract = &abstract
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Version reports ErrVersionUnavailable; bleve keeps no ingest counter.
func (b *BleveFTS) Version(_ context.Context) (int64, error) {
	return 0, ErrVersionUnavailable
}

// Close closes the index. Idempotent.
func (b *BleveFTS) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

// meshTermsList extracts the mesh_terms list from the metadata JSON.
func meshTermsList(metadata string) []string {
	if metadata == "" {
		return nil
	}
	var parsed struct {
		MeshTerms []string `json:"mesh_terms"`
	}
	if err := json.Unmarshal([]byte(metadata), &parsed); err != nil {
		return nil
	}
	return parsed.MeshTerms
}
