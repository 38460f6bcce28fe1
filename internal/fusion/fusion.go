// Package fusion combines ranked hit lists from multiple retrieval
// strategies into one list using Reciprocal Rank Fusion (RRF).
package fusion

import (
	"sort"

	"github.com/CoReason-AI/coreason-search/internal/schema"
)

// DefaultK is the standard RRF smoothing parameter. k=60 is empirically
// validated across domains (used by Azure AI Search, OpenSearch, etc.).
const DefaultK = 60

// Config tunes the fusion engine.
type Config struct {
	// K is the RRF smoothing constant. Non-positive values fall back to
	// DefaultK.
	K int
}

// Engine fuses ranked lists with RRF.
//
// Algorithm: RRF_score(d) = Σ 1 / (k + rank_i + 1) over every list in
// which d appears, ranks 0-based. The fused score replaces whatever
// per-strategy score the hit carried.
type Engine struct {
	k int
}

// New creates a fusion engine.
func New(cfg Config) *Engine {
	k := cfg.K
	if k <= 0 {
		k = DefaultK
	}
	return &Engine{k: k}
}

// Fuse merges the ranked lists into one list sorted by RRF score
// descending. Each doc_id appears once; its canonical Hit is the first
// occurrence across the inputs in input order, cloned with the fused
// score. Ties keep first-appearance order.
func (e *Engine) Fuse(lists [][]*schema.Hit) []*schema.Hit {
	if len(lists) == 0 {
		return []*schema.Hit{}
	}

	type entry struct {
		hit   *schema.Hit
		score float64
		order int
	}

	entries := make(map[string]*entry)
	var ordered []*entry

	for _, list := range lists {
		for rank, hit := range list {
			contribution := 1.0 / float64(e.k+rank+1)
			if ent, ok := entries[hit.DocID]; ok {
				ent.score += contribution
				continue
			}
			ent := &entry{hit: hit, score: contribution, order: len(ordered)}
			entries[hit.DocID] = ent
			ordered = append(ordered, ent)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		return ordered[i].order < ordered[j].order
	})

	fused := make([]*schema.Hit, len(ordered))
	for i, ent := range ordered {
		hit := ent.hit.Clone()
		hit.Score = ent.score
		fused[i] = hit
	}
	return fused
}
