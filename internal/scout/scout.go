// Package scout distills hit content into query-focused extracts. Each
// hit is segmented into sentences, segments are scored against the query,
// and the surviving segments are joined into distilled_text.
//
// When a hit carries no stored text but has a source pointer, the scout
// fetches content just in time through the FetcherHook. Fetched text is
// ephemeral: it is processed locally and never written onto the returned
// Hit's content or original_text fields.
package scout

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/CoReason-AI/coreason-search/internal/config"
	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
	"github.com/CoReason-AI/coreason-search/internal/query"
	"github.com/CoReason-AI/coreason-search/internal/schema"
)

// DefaultThreshold is the segment score cutoff when configuration does
// not set one. With binary segment scoring, any positive threshold below
// 1.0 keeps exactly the matching segments.
const DefaultThreshold = 0.4

// FetcherHook retrieves ephemeral content for a hit from its source
// pointer. The user context is opaque to the pipeline; it exists so the
// fetcher can enforce identity-bound authorization. A nil result means
// no content.
type FetcherHook func(ctx context.Context, pointer map[string]any, userContext map[string]any) (*string, error)

// Scout is the context distiller.
type Scout struct {
	threshold float64
	fetcher   FetcherHook
	logger    *slog.Logger
}

// Option configures a Scout.
type Option func(*Scout)

// WithFetcher installs the just-in-time content fetcher.
func WithFetcher(hook FetcherHook) Option {
	return func(s *Scout) {
		s.fetcher = hook
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scout) {
		s.logger = logger
	}
}

// New creates a Scout from configuration.
func New(cfg config.ScoutConfig, opts ...Option) *Scout {
	s := &Scout{
		threshold: cfg.Threshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Distill produces a fresh copy of every hit with distilled_text set to
// the query-relevant reconstruction of its text. Hits without any text
// source come back with an empty distilled_text. A fetcher failure aborts
// the whole pass.
func (s *Scout) Distill(ctx context.Context, q schema.Query, hits []*schema.Hit, userContext map[string]any) ([]*schema.Hit, error) {
	terms := queryTerms(q)

	out := make([]*schema.Hit, 0, len(hits))
	for _, hit := range hits {
		clone := hit.Clone()

		text, err := s.resolveText(ctx, hit, userContext)
		if err != nil {
			return nil, err
		}
		if text == "" {
			clone.DistilledText = ""
			out = append(out, clone)
			continue
		}

		clone.DistilledText = s.distillText(text, terms)
		out = append(out, clone)
	}
	return out, nil
}

// resolveText picks the hit's text source: stored original text first,
// then the fetcher. The fetched string stays local to the distill pass.
func (s *Scout) resolveText(ctx context.Context, hit *schema.Hit, userContext map[string]any) (string, error) {
	if hit.OriginalText != nil && *hit.OriginalText != "" {
		return *hit.OriginalText, nil
	}
	if s.fetcher == nil || hit.SourcePointer == nil {
		return "", nil
	}

	fetched, err := s.fetcher(ctx, hit.SourcePointer, userContext)
	if err != nil {
		return "", cserrors.FetchError("fetch content for "+hit.DocID, err)
	}
	if fetched == nil {
		s.logger.Debug("fetcher_returned_no_content", slog.String("doc_id", hit.DocID))
		return "", nil
	}
	return *fetched, nil
}

// distillText segments, scores, filters, and reconstructs.
func (s *Scout) distillText(text string, terms []string) string {
	var kept []string
	for _, segment := range SplitSentences(text) {
		if scoreSegment(segment, terms) > s.threshold {
			kept = append(kept, segment)
		}
	}
	return strings.Join(kept, " ")
}

// scoreSegment is the binary relevance model: 1.0 when any query term
// occurs as a substring of the lower-cased segment, else 0.0.
func scoreSegment(segment string, terms []string) float64 {
	lower := strings.ToLower(segment)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return 1.0
		}
	}
	return 0.0
}

func queryTerms(q schema.Query) []string {
	return strings.Fields(strings.ToLower(query.SemanticText(q)))
}

// SplitSentences splits text on the terminators '.', '!', '?' when they
// are followed by whitespace, keeping the terminator with its segment.
// A terminator-free text comes back as a single unchanged segment;
// decimals ("3.14") survive because no whitespace follows the dot.
func SplitSentences(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var segments []string
	runes := []rune(trimmed)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		segment := strings.TrimSpace(string(runes[start : i+1]))
		if segment != "" {
			segments = append(segments, segment)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		segments = append(segments, tail)
	}
	return segments
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
