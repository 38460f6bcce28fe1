// Package audit records the structured events that make systematic runs
// reproducible. Every systematic search is bracketed by a START and a
// COMPLETE event; sink failures propagate in that mode because an
// unaudited systematic run is worthless.
package audit

import (
	"context"
	"log/slog"
	"maps"
	"sync"
)

// Event names emitted by the orchestrator.
const (
	// EventSystematicStart opens a systematic run. Payload: query,
	// strategies, snapshot_id.
	EventSystematicStart = "SYSTEMATIC_SEARCH_START"

	// EventSystematicComplete closes a systematic run. Payload:
	// total_found (items successfully handed to the consumer).
	EventSystematicComplete = "SYSTEMATIC_SEARCH_COMPLETE"
)

// Sink consumes audit events synchronously. Implementations must be safe
// for concurrent use.
type Sink interface {
	Log(ctx context.Context, event string, payload map[string]any) error
}

// SlogSink writes audit events to a structured logger under a fixed
// component envelope.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink writing to logger, or slog.Default when nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Log emits the event with the component envelope used by the audit
// pipeline downstream.
func (s *SlogSink) Log(ctx context.Context, event string, payload map[string]any) error {
	s.logger.InfoContext(ctx, "audit_event",
		slog.String("component", "coreason-search"),
		slog.String("event", event),
		slog.Any("data", payload))
	return nil
}

// Entry is one recorded audit event.
type Entry struct {
	Event   string
	Payload map[string]any
}

// MemorySink records events in order. Test fixture and in-process
// inspection aid.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Log appends the event. Payloads are copied so later mutation by the
// caller cannot rewrite history.
func (s *MemorySink) Log(ctx context.Context, event string, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{Event: event, Payload: maps.Clone(payload)})
	return nil
}

// Entries returns a snapshot of the recorded events in order.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

var (
	_ Sink = (*SlogSink)(nil)
	_ Sink = (*MemorySink)(nil)
)
