// Package api defines public API contracts for shmregion.
package api

// EventSink receives notable region lifecycle events, for example a
// stale segment being unlinked before re-create, or a mapping being
// populated. Implementations must be safe for concurrent use.
type EventSink interface {
	Emit(event string, detail string)
}

// NopSink discards all events.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(event string, detail string) {}

// SinkFunc adapts a plain function to EventSink.
type SinkFunc func(event string, detail string)

// Emit implements EventSink.
func (f SinkFunc) Emit(event string, detail string) { f(event, detail) }
