package diag

import (
	"log/slog"
	"sync"
)

// Kind classifies a diagnostic event.
type Kind string

const (
	KindPathDenied     Kind = "path-denied"
	KindOutsideAllowed Kind = "outside-allowed"
	KindIgnored        Kind = "ignored-by-pattern"
	KindOversized      Kind = "oversized"
	KindDecodeFailed   Kind = "decode-failed"
	KindReadFailed     Kind = "read-failed"
	KindSymlinkCycle   Kind = "symlink-cycle"
)

// Event is a single diagnostic emitted while resolving attachments.
type Event struct {
	Kind   Kind
	Path   string
	Alias  string
	Reason string
}

// Sink is an append-only diagnostics collector shared by the collector and the
// materializer worker pool. Every event is mirrored to the logger.
// A nil *Sink discards events.
type Sink struct {
	mu     sync.Mutex
	events []Event
	logger *slog.Logger
}

// NewSink creates a sink that mirrors events to logger (may be nil).
func NewSink(logger *slog.Logger) *Sink {
	return &Sink{logger: logger}
}

// Emit records an event.
func (s *Sink) Emit(event Event) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()

	if s.logger == nil {
		return
	}
	attrs := []any{"kind", string(event.Kind), "path", event.Path}
	if event.Alias != "" {
		attrs = append(attrs, "alias", event.Alias)
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", event.Reason)
	}
	// Pattern-ignored files are routine; everything else deserves attention.
	if event.Kind == KindIgnored {
		s.logger.Debug("attachment diagnostic", attrs...)
		return
	}
	s.logger.Warn("attachment diagnostic", attrs...)
}

// Events returns a copy of all recorded events in emission order.
func (s *Sink) Events() []Event {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Count returns the number of recorded events of the given kind.
func (s *Sink) Count(kind Kind) int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
