package schema

import (
	"encoding/json"
	"fmt"

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
)

// DefaultTopK is the bounded result count when a request does not set top_k.
const DefaultTopK = 5

// SearchRequest is one retrieval request, shared by the bounded and the
// systematic execution modes. Requests are immutable after construction.
type SearchRequest struct {
	Query          Query          `json:"query"`
	Strategies     []Strategy     `json:"strategies"`
	FusionEnabled  bool           `json:"fusion_enabled"`
	RerankEnabled  bool           `json:"rerank_enabled"`
	DistillEnabled bool           `json:"distill_enabled"`
	TopK           int            `json:"top_k"`
	Filters        map[string]any `json:"filters,omitempty"`
	UserContext    map[string]any `json:"user_context,omitempty"`
}

// NewSearchRequest builds a request with every stage enabled and the
// default top_k.
func NewSearchRequest(query Query, strategies ...Strategy) *SearchRequest {
	return &SearchRequest{
		Query:          query,
		Strategies:     strategies,
		FusionEnabled:  true,
		RerankEnabled:  true,
		DistillEnabled: true,
		TopK:           DefaultTopK,
	}
}

// UnmarshalJSON applies the wire defaults: absent stage toggles mean
// enabled, absent top_k means DefaultTopK.
func (r *SearchRequest) UnmarshalJSON(data []byte) error {
	type wire struct {
		Query          Query          `json:"query"`
		Strategies     []Strategy     `json:"strategies"`
		FusionEnabled  *bool          `json:"fusion_enabled"`
		RerankEnabled  *bool          `json:"rerank_enabled"`
		DistillEnabled *bool          `json:"distill_enabled"`
		TopK           *int           `json:"top_k"`
		Filters        map[string]any `json:"filters"`
		UserContext    map[string]any `json:"user_context"`
	}

	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	r.Query = w.Query
	r.Strategies = w.Strategies
	r.FusionEnabled = w.FusionEnabled == nil || *w.FusionEnabled
	r.RerankEnabled = w.RerankEnabled == nil || *w.RerankEnabled
	r.DistillEnabled = w.DistillEnabled == nil || *w.DistillEnabled
	r.TopK = DefaultTopK
	if w.TopK != nil {
		r.TopK = *w.TopK
	}
	r.Filters = w.Filters
	r.UserContext = w.UserContext
	return nil
}

// Validate checks the invariants shared by both execution modes. Violations
// surface to the caller; they are the only errors Execute returns directly.
func (r *SearchRequest) Validate() error {
	if len(r.Strategies) == 0 {
		return cserrors.ValidationError("at least one strategy is required", nil)
	}
	for _, s := range r.Strategies {
		if !s.Valid() {
			return cserrors.ValidationError(fmt.Sprintf("unknown strategy %q", string(s)), nil)
		}
	}
	if r.TopK <= 0 {
		return cserrors.ValidationError(fmt.Sprintf("top_k must be positive, got %d", r.TopK), nil)
	}
	return nil
}

// StrategyNames returns the strategy tags as plain strings, in request
// order. Used for audit payloads and logs.
func (r *SearchRequest) StrategyNames() []string {
	names := make([]string, len(r.Strategies))
	for i, s := range r.Strategies {
		names[i] = string(s)
	}
	return names
}
