package adapter

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	mnoop "go.opentelemetry.io/otel/metric/noop"
	tnoop "go.opentelemetry.io/otel/trace/noop"
)

// recordingCounter keeps what the sink adds; everything else stays
// no-op through the embedded instrument.
type recordingCounter struct {
	mnoop.Int64Counter
	mu    sync.Mutex
	total int64
	attrs []attribute.KeyValue
}

func (c *recordingCounter) Add(_ context.Context, v int64, opts ...metric.AddOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += v
	set := metric.NewAddConfig(opts).Attributes()
	c.attrs = append(c.attrs, set.ToSlice()...)
}

type recordingMeter struct {
	mnoop.Meter
	counter *recordingCounter
}

func (m recordingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return m.counter, nil
}

func TestTelemetrySinkCountsEvents(t *testing.T) {
	rec := &recordingCounter{}
	sink, err := NewTelemetrySink(recordingMeter{counter: rec}, tnoop.NewTracerProvider().Tracer("test"))
	require.Equal(t, nil, err)

	sink.Emit("region mapped", "telemetry backend=shm size=4096")
	sink.Emit("region unmapped", "telemetry")

	assert.Equal(t, int64(2), rec.total)
	assert.Contains(t, rec.attrs, attribute.String("event", "region mapped"))
	assert.Contains(t, rec.attrs, attribute.String("event", "region unmapped"))
}

func TestTelemetrySinkNilTracer(t *testing.T) {
	rec := &recordingCounter{}
	sink, err := NewTelemetrySink(recordingMeter{counter: rec}, nil)
	require.Equal(t, nil, err)

	sink.Emit("populate fallback engaged", "mlock/munlock walk")
	assert.Equal(t, int64(1), rec.total)
}
