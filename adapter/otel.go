// Package adapter provides adapters for shmregion integration with
// external systems.
package adapter

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/shmregion/api"
)

// TelemetrySink forwards region lifecycle events to OpenTelemetry: a
// counter increment per event kind, and a point span carrying the
// detail when a tracer is supplied. Install it with shm.SetEventSink.
type TelemetrySink struct {
	events metric.Int64Counter
	tracer trace.Tracer
}

var _ api.EventSink = (*TelemetrySink)(nil)

// NewTelemetrySink builds a sink on the given meter. The tracer may be
// nil to skip span emission.
func NewTelemetrySink(meter metric.Meter, tracer trace.Tracer) (*TelemetrySink, error) {
	events, err := meter.Int64Counter("shmregion.events",
		metric.WithDescription("Region lifecycle events by kind."))
	if err != nil {
		return nil, err
	}
	return &TelemetrySink{events: events, tracer: tracer}, nil
}

// Emit implements api.EventSink.
func (s *TelemetrySink) Emit(event, detail string) {
	ctx := context.Background()
	s.events.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
	if s.tracer != nil {
		_, span := s.tracer.Start(ctx, event,
			trace.WithAttributes(attribute.String("detail", detail)))
		span.End()
	}
}
