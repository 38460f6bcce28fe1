// Package search drives the retrieval pipeline: parallel strategy
// dispatch, fusion, reranking, and distillation in bounded mode, and the
// audited lazy stream in systematic mode.
package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CoReason-AI/coreason-search/internal/audit"
	"github.com/CoReason-AI/coreason-search/internal/config"
	"github.com/CoReason-AI/coreason-search/internal/fusion"
	"github.com/CoReason-AI/coreason-search/internal/query"
	"github.com/CoReason-AI/coreason-search/internal/rerank"
	"github.com/CoReason-AI/coreason-search/internal/retriever"
	"github.com/CoReason-AI/coreason-search/internal/schema"
	"github.com/CoReason-AI/coreason-search/internal/scout"
)

// ErrNilDependency reports a missing required collaborator at
// construction time.
var ErrNilDependency = errors.New("search: nil dependency")

// DefaultRerankWindow bounds the candidate set passed into the reranker.
const DefaultRerankWindow = 50

// Engine owns one configured pipeline instance. Its collaborators are
// fixed at construction; every stage returns fresh hit copies so the
// engine itself carries no mutable state between calls.
type Engine struct {
	retrievers map[schema.Strategy]retriever.Interface
	sparse     *retriever.Sparse
	fusion     *fusion.Engine
	reranker   rerank.Reranker
	scout      *scout.Scout
	fetcher    scout.FetcherHook
	sink       audit.Sink
	window     int
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithReranker overrides the config-selected reranker.
func WithReranker(r rerank.Reranker) Option {
	return func(e *Engine) { e.reranker = r }
}

// WithScout overrides the config-built distiller.
func WithScout(s *scout.Scout) Option {
	return func(e *Engine) { e.scout = s }
}

// WithFetcher installs a JIT content fetcher on the config-built
// distiller. Ignored when WithScout supplies a custom one.
func WithFetcher(hook scout.FetcherHook) Option {
	return func(e *Engine) { e.fetcher = hook }
}

// WithAuditSink overrides the default slog audit sink.
func WithAuditSink(sink audit.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithClock overrides the wall clock. Test seam for execution_time_ms.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New wires an engine from the three strategy adapters and the settings.
// The reranker, scout, and audit sink default to config-selected
// implementations; options override them.
func New(dense retriever.Interface, sparse *retriever.Sparse, graph retriever.Interface, cfg *config.Settings, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if dense == nil || sparse == nil || graph == nil || cfg == nil {
		return nil, ErrNilDependency
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		retrievers: map[schema.Strategy]retriever.Interface{
			schema.StrategyDense: dense,
			schema.StrategyFTS:   sparse,
			schema.StrategyGraph: graph,
		},
		sparse: sparse,
		fusion: fusion.New(fusion.Config{K: cfg.Search.RRFK}),
		window: cfg.Search.RerankWindow,
		logger: logger,
		now:    time.Now,
	}
	if e.window <= 0 {
		e.window = DefaultRerankWindow
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.reranker == nil {
		e.reranker = rerank.New(cfg.Reranker)
	}
	if e.scout == nil {
		scoutOpts := []scout.Option{scout.WithLogger(logger)}
		if e.fetcher != nil {
			scoutOpts = append(scoutOpts, scout.WithFetcher(e.fetcher))
		}
		e.scout = scout.New(cfg.Scout, scoutOpts...)
	}
	if e.sink == nil {
		e.sink = audit.NewSlogSink(logger)
	}
	return e, nil
}

// Execute runs the bounded pipeline: parallel dispatch, fusion or
// concat-dedup, rerank window, rerank, distill. Only validation errors
// and fetcher failures surface; backend errors are isolated per strategy.
func (e *Engine) Execute(ctx context.Context, req *schema.SearchRequest) (*schema.SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := e.now()
	e.logger.Debug("search_started",
		slog.String("query", query.SemanticText(req.Query)),
		slog.Any("strategies", req.StrategyNames()),
		slog.Int("top_k", req.TopK))

	lists := e.dispatch(ctx, req)
	merged := e.merge(req, lists)

	window := merged
	if len(window) > e.window {
		window = window[:e.window]
	}

	hits, err := e.rankAndDistill(ctx, req, window)
	if err != nil {
		return nil, err
	}

	elapsed := e.now().Sub(start)
	resp := &schema.SearchResponse{
		Hits:            hits,
		TotalFound:      len(hits),
		ExecutionTimeMS: float64(elapsed.Microseconds()) / 1000.0,
		ProvenanceHash:  ProvenanceHash(query.SemanticText(req.Query), schema.DocIDs(hits)),
	}
	e.logger.Debug("search_completed",
		slog.Int("total_found", resp.TotalFound),
		slog.Float64("execution_time_ms", resp.ExecutionTimeMS))
	return resp, nil
}

// dispatch fans the request out to every listed strategy in parallel.
// Results land in a slice indexed by request order so the merge input is
// deterministic regardless of completion order. A failing strategy leaves
// its slot nil and never aborts peers.
func (e *Engine) dispatch(ctx context.Context, req *schema.SearchRequest) [][]*schema.Hit {
	lists := make([][]*schema.Hit, len(req.Strategies))

	var g errgroup.Group
	for i, strategy := range req.Strategies {
		g.Go(func() error {
			r, ok := e.retrievers[strategy]
			if !ok {
				e.logger.Warn("strategy_failed",
					slog.String("strategy", string(strategy)),
					slog.String("error", "no retriever registered"))
				return nil
			}

			began := e.now()
			hits, err := r.Retrieve(ctx, req)
			if err != nil {
				e.logger.Warn("strategy_failed",
					slog.String("strategy", string(strategy)),
					slog.String("error", err.Error()))
				return nil
			}
			e.logger.Debug("strategy_completed",
				slog.String("strategy", string(strategy)),
				slog.Int("hits", len(hits)),
				slog.Duration("duration", e.now().Sub(began)))
			lists[i] = hits
			return nil
		})
	}
	_ = g.Wait()
	return lists
}

// merge combines per-strategy lists: RRF when fusion is enabled, else
// concatenation deduped by doc_id keeping the first occurrence. Both
// paths yield fresh copies.
func (e *Engine) merge(req *schema.SearchRequest, lists [][]*schema.Hit) []*schema.Hit {
	began := e.now()
	defer func() {
		e.logger.Debug("merge_completed", slog.Duration("duration", e.now().Sub(began)))
	}()

	if req.FusionEnabled {
		return e.fusion.Fuse(lists)
	}

	var merged []*schema.Hit
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, hit := range list {
			if seen[hit.DocID] {
				continue
			}
			seen[hit.DocID] = true
			merged = append(merged, hit.Clone())
		}
	}
	return merged
}

// rankAndDistill applies the rerank and distill stages to the windowed
// candidates. A reranker failure falls back to window order; a fetcher
// failure inside the distiller aborts the call.
func (e *Engine) rankAndDistill(ctx context.Context, req *schema.SearchRequest, window []*schema.Hit) ([]*schema.Hit, error) {
	var hits []*schema.Hit
	if req.RerankEnabled && len(window) > 0 {
		began := e.now()
		reranked, err := e.reranker.Rerank(ctx, req.Query, window, req.TopK)
		if err != nil {
			e.logger.Warn("rerank_failed", slog.String("error", err.Error()))
			hits = headClones(window, req.TopK)
		} else {
			hits = reranked
		}
		e.logger.Debug("rerank_completed", slog.Duration("duration", e.now().Sub(began)))
	} else {
		hits = headClones(window, req.TopK)
	}

	if req.DistillEnabled && len(hits) > 0 {
		began := e.now()
		distilled, err := e.scout.Distill(ctx, req.Query, hits, req.UserContext)
		if err != nil {
			return nil, err
		}
		hits = distilled
		e.logger.Debug("distill_completed", slog.Duration("duration", e.now().Sub(began)))
	}

	if hits == nil {
		hits = []*schema.Hit{}
	}
	return hits, nil
}

// headClones copies the first n hits of a list.
func headClones(hits []*schema.Hit, n int) []*schema.Hit {
	if len(hits) > n {
		hits = hits[:n]
	}
	out := make([]*schema.Hit, len(hits))
	for i, h := range hits {
		out[i] = h.Clone()
	}
	return out
}
