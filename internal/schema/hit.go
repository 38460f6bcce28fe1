package schema

import (
	"maps"
	"slices"
)

// Hit is one search result. DocID is the stable identity across the
// pipeline; every dedup and fusion accumulator keys on it.
//
// Content and OriginalText are nullable: retrievers that defer full text to
// the fetcher hook leave both nil and set SourcePointer instead. Text that
// reaches the pipeline through the fetcher is ephemeral and never written
// back to either field.
type Hit struct {
	DocID          string         `json:"doc_id"`
	Content        *string        `json:"content,omitempty"`
	OriginalText   *string        `json:"original_text,omitempty"`
	DistilledText  string         `json:"distilled_text"`
	Score          float64        `json:"score"`
	SourceStrategy Strategy       `json:"source_strategy"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	SourcePointer  map[string]any `json:"source_pointer,omitempty"`
	ACLs           []string       `json:"acls,omitempty"`
}

// Clone returns an independent copy. Stages transform clones so earlier
// stage output is never mutated.
func (h *Hit) Clone() *Hit {
	if h == nil {
		return nil
	}
	dup := *h
	if h.Content != nil {
		content := *h.Content
		dup.Content = &content
	}
	if h.OriginalText != nil {
		text := *h.OriginalText
		dup.OriginalText = &text
	}
	dup.Metadata = maps.Clone(h.Metadata)
	dup.SourcePointer = maps.Clone(h.SourcePointer)
	dup.ACLs = slices.Clone(h.ACLs)
	return &dup
}

// DocIDs extracts the ordered ids from a hit list.
func DocIDs(hits []*Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocID
	}
	return ids
}

// SearchResponse is the bounded-mode result envelope.
type SearchResponse struct {
	Hits            []*Hit  `json:"hits"`
	TotalFound      int     `json:"total_found"`
	ExecutionTimeMS float64 `json:"execution_time_ms"`
	ProvenanceHash  string  `json:"provenance_hash"`
}
