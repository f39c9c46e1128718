package shm

import (
	"github.com/srediag/shmregion/api"
	"github.com/srediag/shmregion/internal/logging"
)

// Events emitted through the configured sink.
const (
	// EventStaleUnlinked fires when a create call removed a leftover
	// object under its name before re-creating it.
	EventStaleUnlinked = "stale shm object unlinked"
	// EventRegionMapped fires after a region is mapped and placed.
	EventRegionMapped = "region mapped"
	// EventRegionUnmapped fires after Close or the finalizer unmaps.
	EventRegionUnmapped = "region unmapped"
	// EventPopulateFallback fires when physical population takes the
	// lock/unlock path instead of the populate advice.
	EventPopulateFallback = "populate fallback engaged"
	// EventDeviceReused fires when the device reports an allocation
	// already existed for the requested tag.
	EventDeviceReused = "device allocation reused"
)

type logSink struct{}

func (logSink) Emit(event, detail string) {
	logging.Infof("%s: %s", event, detail)
}

// Set once during startup, before regions are opened.
var eventSink api.EventSink = logSink{}

// SetEventSink replaces the process-wide sink receiving region
// lifecycle events. The default logs at Info level; nil installs a
// discarding sink.
func SetEventSink(s api.EventSink) {
	if s == nil {
		s = api.NopSink{}
	}
	eventSink = s
}

func emit(event, detail string) {
	eventSink.Emit(event, detail)
}

// SetLogLevel used to change the package logger's level and the default
// level is Warning. The process env `SHMREGION_LOG_LEVEL` also could
// set log level
func SetLogLevel(l int) {
	logging.SetLogLevel(l)
}
