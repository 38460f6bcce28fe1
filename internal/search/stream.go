package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CoReason-AI/coreason-search/internal/audit"
	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
	"github.com/CoReason-AI/coreason-search/internal/query"
	"github.com/CoReason-AI/coreason-search/internal/retriever"
	"github.com/CoReason-AI/coreason-search/internal/schema"
	"github.com/CoReason-AI/coreason-search/internal/store"
)

// ExecuteSystematic opens the audited streaming mode. Validation and the
// START audit event happen before the stream is handed out; a failing
// sink aborts the call because an unaudited systematic run is worthless.
// The returned stream is pull-driven and not safe for concurrent use.
func (e *Engine) ExecuteSystematic(ctx context.Context, req *schema.SearchRequest) (*HitStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	snapshot := e.snapshotID(ctx)
	payload := map[string]any{
		"query":       query.SemanticText(req.Query),
		"strategies":  req.StrategyNames(),
		"snapshot_id": snapshot,
	}
	if err := e.sink.Log(ctx, audit.EventSystematicStart, payload); err != nil {
		return nil, cserrors.AuditError("systematic start audit failed", err)
	}

	e.logger.Info("systematic_started",
		slog.Any("strategies", req.StrategyNames()),
		slog.Int64("snapshot_id", snapshot))

	streamCtx, cancel := context.WithCancel(ctx)
	return &HitStream{
		engine: e,
		req:    req,
		ctx:    streamCtx,
		cancel: cancel,
	}, nil
}

// snapshotID resolves the sparse backend version for the audit record.
// Backends without version tracking map to -1.
func (e *Engine) snapshotID(ctx context.Context) int64 {
	version, err := e.sparse.Version(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrVersionUnavailable) {
			e.logger.Warn("snapshot_version_failed", slog.String("error", err.Error()))
		}
		return -1
	}
	return version
}

// HitStream is the lazy systematic result sequence. Usage follows the
// sql.Rows idiom:
//
//	stream, err := engine.ExecuteSystematic(ctx, req)
//	for stream.Next() {
//	    hit := stream.Hit()
//	    ...
//	}
//	err = stream.Err()
//	_ = stream.Close()
//
// Delivery bookkeeping for a yielded hit runs at the start of the next
// Next call, so closing after reading N items reports N-1 in the
// COMPLETE audit event. Natural exhaustion reports N.
type HitStream struct {
	engine *Engine
	req    *schema.SearchRequest
	ctx    context.Context
	cancel context.CancelFunc

	stratIdx  int
	cursor    *retriever.Cursor
	pending   []*schema.Hit
	current   *schema.Hit
	delivered int
	err       error
	closed    bool
	completed bool
}

// Next advances to the next hit. It returns false on exhaustion, failure,
// or after Close; check Err afterwards.
func (s *HitStream) Next() bool {
	if s.closed || s.completed {
		return false
	}
	if s.current != nil {
		s.delivered++
		s.current = nil
	}

	hit, err := s.fetch()
	if err != nil {
		s.err = err
		s.finish()
		return false
	}
	if hit == nil {
		s.finish()
		return false
	}
	s.current = hit
	return true
}

// Hit returns the hit most recently yielded by Next.
func (s *HitStream) Hit() *schema.Hit {
	return s.current
}

// Err reports the failure that terminated the stream, if any.
func (s *HitStream) Err() error {
	return s.err
}

// Close terminates the stream early: backend paging stops and the
// COMPLETE audit fires if it has not already. Safe to call more than
// once.
func (s *HitStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	s.finish()
	return nil
}

// fetch walks the requested strategies in order, draining the active
// source before moving on. Dense has no streamed mode and falls back to
// one bounded retrieval; graph has no systematic semantics at all.
func (s *HitStream) fetch() (*schema.Hit, error) {
	for {
		if s.cursor != nil {
			if hit, ok := s.cursor.Next(); ok {
				return hit, nil
			}
			if err := s.cursor.Err(); err != nil {
				return nil, err
			}
			s.cursor = nil
			continue
		}
		if len(s.pending) > 0 {
			hit := s.pending[0]
			s.pending = s.pending[1:]
			return hit, nil
		}

		if s.stratIdx >= len(s.req.Strategies) {
			return nil, nil
		}
		strategy := s.req.Strategies[s.stratIdx]
		s.stratIdx++

		switch strategy {
		case schema.StrategyFTS:
			s.cursor = s.engine.sparse.RetrieveSystematic(s.ctx, s.req)
		case schema.StrategyDense:
			s.engine.logger.Warn("systematic_dense_fallback",
				slog.String("strategy", string(strategy)))
			hits, err := s.engine.retrievers[schema.StrategyDense].Retrieve(s.ctx, s.req)
			if err != nil {
				return nil, err
			}
			s.pending = hits
		default:
			s.engine.logger.Warn("systematic_strategy_skipped",
				slog.String("strategy", string(strategy)))
		}
	}
}

// finish emits the COMPLETE audit exactly once. A sink failure here
// surfaces through Err when nothing else already terminated the stream.
func (s *HitStream) finish() {
	if s.completed {
		return
	}
	s.completed = true
	s.cancel()

	payload := map[string]any{"total_found": s.delivered}
	// The parent context may already be done; the audit record must still
	// be attempted.
	if err := s.engine.sink.Log(context.WithoutCancel(s.ctx), audit.EventSystematicComplete, payload); err != nil {
		if s.err == nil {
			s.err = cserrors.AuditError(fmt.Sprintf("systematic complete audit failed after %d hits", s.delivered), err)
		}
		return
	}
	s.engine.logger.Info("systematic_complete", slog.Int("total_found", s.delivered))
}
