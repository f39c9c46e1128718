package adapter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shmregion/api"
)

func TestEventJournalWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	j := NewEventJournal(&buf)
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	j.now = func() time.Time { return fixed }

	j.Emit("stale shm object unlinked", "telemetry")
	j.Emit("region mapped", "telemetry backend=shm size=4096")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, 2, len(lines))

	var e journalEntry
	require.Equal(t, nil, json.Unmarshal([]byte(lines[0]), &e))
	assert.Equal(t, "stale shm object unlinked", e.Event)
	assert.Equal(t, "telemetry", e.Detail)
	assert.Equal(t, fixed, e.Time)

	require.Equal(t, nil, json.Unmarshal([]byte(lines[1]), &e))
	assert.Equal(t, "region mapped", e.Event)
}

func TestFanoutReachesEverySink(t *testing.T) {
	var first, second []string
	f := Fanout{
		api.SinkFunc(func(event, _ string) { first = append(first, event) }),
		api.SinkFunc(func(event, _ string) { second = append(second, event) }),
	}

	f.Emit("region mapped", "x")
	f.Emit("region unmapped", "x")

	assert.Equal(t, []string{"region mapped", "region unmapped"}, first)
	assert.Equal(t, []string{"region mapped", "region unmapped"}, second)
}
