// Package adapter provides adapters for shmregion integration with
// external systems.
package adapter

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/srediag/shmregion/api"
	"github.com/srediag/shmregion/internal/logging"
)

// EventJournal records region lifecycle events as JSON lines, one
// object per event, for audit trails that outlive the process. Install
// it with shm.SetEventSink, usually fanned out next to a TelemetrySink.
type EventJournal struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

var _ api.EventSink = (*EventJournal)(nil)

// NewEventJournal writes entries to w. The writer needs no locking of
// its own; the journal serializes.
func NewEventJournal(w io.Writer) *EventJournal {
	return &EventJournal{enc: json.NewEncoder(w), now: time.Now}
}

type journalEntry struct {
	Time   time.Time `json:"time"`
	Event  string    `json:"event"`
	Detail string    `json:"detail"`
}

// Emit implements api.EventSink.
func (j *EventJournal) Emit(event, detail string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	entry := journalEntry{Time: j.now().UTC(), Event: event, Detail: detail}
	if err := j.enc.Encode(entry); err != nil {
		logging.Warnf("adapter: event journal write: %v", err)
	}
}

// Fanout duplicates events to every sink in order.
type Fanout []api.EventSink

var _ api.EventSink = Fanout{}

// Emit implements api.EventSink.
func (f Fanout) Emit(event, detail string) {
	for _, s := range f {
		s.Emit(event, detail)
	}
}
