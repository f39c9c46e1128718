//go:build linux

package shm

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shmregion/api"
	"github.com/srediag/shmregion/pkg/mem"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.Equal(t, nil, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRawRoundTripTwoHandles(t *testing.T) {
	name := testName()
	createdBefore := counterValue(t, regionOpens.WithLabelValues("shm", "created"))
	attachedBefore := counterValue(t, regionOpens.WithLabelValues("shm", "attached"))

	creator, err := OpenRaw(RawOptions{Name: name, Size: 3000, Create: true})
	require.Equal(t, nil, err)
	defer creator.Close() //nolint:errcheck // test cleanup, error ignored intentionally
	defer creator.Unlink() //nolint:errcheck // test cleanup, error ignored intentionally

	assert.True(t, creator.Created())
	assert.Equal(t, name, creator.Name())
	assert.Equal(t, uintptr(mem.PageSize), creator.Size(), "3000 bytes rounds to one page")
	assert.True(t, mem.PageAligned(creator.Addr()))

	copy(creator.Bytes(), "ping")

	attacher, err := OpenRaw(RawOptions{Name: name, Size: 3000})
	require.Equal(t, nil, err)
	defer attacher.Close() //nolint:errcheck // test cleanup, error ignored intentionally

	assert.False(t, attacher.Created())
	assert.Equal(t, "ping", string(attacher.Bytes()[:4]), "attacher sees the creator's bytes")

	copy(attacher.Bytes()[8:], "pong")
	assert.Equal(t, "pong", string(creator.Bytes()[8:12]), "writes travel the other way too")

	assert.Equal(t, createdBefore+1, counterValue(t, regionOpens.WithLabelValues("shm", "created")))
	assert.Equal(t, attachedBefore+1, counterValue(t, regionOpens.WithLabelValues("shm", "attached")))
}

func TestRawAttachMissing(t *testing.T) {
	_, err := OpenRaw(RawOptions{Name: testName(), Size: mem.PageSize})
	require.NotEqual(t, nil, err)
	assert.True(t, mem.IsNotFound(err), "attach never creates: %v", err)
}

func TestRawUnlinkIdempotent(t *testing.T) {
	r, err := OpenRaw(RawOptions{Name: testName(), Size: mem.PageSize, Create: true})
	require.Equal(t, nil, err)
	defer r.Close() //nolint:errcheck // test cleanup, error ignored intentionally

	assert.Equal(t, nil, r.Unlink())
	assert.Equal(t, nil, r.Unlink(), "an already-removed name counts as success")

	b := r.Bytes()
	require.NotEqual(t, 0, len(b))
	b[0] = 1 // the mapping outlives the name
}

func TestRawCloseSemantics(t *testing.T) {
	r, err := OpenRaw(RawOptions{Name: testName(), Size: mem.PageSize, Create: true})
	require.Equal(t, nil, err)
	defer r.Unlink() //nolint:errcheck // test cleanup, error ignored intentionally

	unmapsBefore := counterValue(t, regionUnmaps)
	assert.Equal(t, nil, r.Close())
	assert.Equal(t, nil, r.Close(), "double close is a no-op")
	assert.Equal(t, unmapsBefore+1, counterValue(t, regionUnmaps), "one close, one unmap")
	assert.Nil(t, r.Bytes(), "no byte view after close")
}

func TestRawStaleUnlinkOnCreate(t *testing.T) {
	name := testName()

	// Leave a leftover object behind, as a crashed process would.
	stale, err := OpenRaw(RawOptions{Name: name, Size: mem.PageSize, Create: true})
	require.Equal(t, nil, err)
	copy(stale.Bytes(), "old")
	require.Equal(t, nil, stale.Close())

	defer SetEventSink(nil)
	var events []string
	SetEventSink(api.SinkFunc(func(event, detail string) {
		if event == EventStaleUnlinked {
			events = append(events, detail)
		}
	}))
	staleBefore := counterValue(t, staleUnlinks)

	r, err := OpenRaw(RawOptions{Name: name, Size: mem.PageSize, Create: true})
	require.Equal(t, nil, err)
	defer r.Close() //nolint:errcheck // test cleanup, error ignored intentionally
	defer r.Unlink() //nolint:errcheck // test cleanup, error ignored intentionally

	assert.True(t, r.Created(), "the leftover was removed, not adopted")
	assert.Equal(t, []string{name}, events)
	assert.Equal(t, staleBefore+1, counterValue(t, staleUnlinks))
	assert.Equal(t, make([]byte, 4), r.Bytes()[:4], "fresh object, not the stale contents")
}

func TestRawAnonymous(t *testing.T) {
	r, err := OpenRaw(RawOptions{Backend: Anonymous(), Size: 2 * mem.PageSize, Create: true})
	require.Equal(t, nil, err)
	defer r.Close() //nolint:errcheck // test cleanup, error ignored intentionally

	assert.True(t, r.Created())
	assert.Equal(t, uintptr(2*mem.PageSize), r.Size())
	assert.Equal(t, nil, r.Unlink(), "nothing to unlink, nothing to fail")

	b := r.Bytes()
	b[0], b[len(b)-1] = 1, 2
	assert.Equal(t, byte(1), b[0])
}

func TestRawAnonymousAttachStillMapsFresh(t *testing.T) {
	// The anonymous backend has no namespace: an attach cannot find
	// prior pages and always comes back freshly created.
	r, err := OpenRaw(RawOptions{Backend: Anonymous(), Size: mem.PageSize})
	require.Equal(t, nil, err)
	defer r.Close() //nolint:errcheck // test cleanup, error ignored intentionally
	assert.True(t, r.Created())
}

func TestActiveRegionsTracksHandles(t *testing.T) {
	name := testName()
	r1, err := OpenRaw(RawOptions{Name: name, Size: mem.PageSize, Create: true})
	require.Equal(t, nil, err)
	defer r1.Unlink() //nolint:errcheck // test cleanup, error ignored intentionally

	r2, err := OpenRaw(RawOptions{Name: name, Size: mem.PageSize})
	require.Equal(t, nil, err)

	assert.Equal(t, 2, ActiveRegions()[name])
	require.Equal(t, nil, r2.Close())
	assert.Equal(t, 1, ActiveRegions()[name])
	require.Equal(t, nil, r1.Close())
	_, ok := ActiveRegions()[name]
	assert.False(t, ok)
}
