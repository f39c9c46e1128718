//go:build linux

package health

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shmregion/api"
)

type testResponseWriter struct {
	headers http.Header
	status  int
	body    []byte
}

func (w *testResponseWriter) Header() http.Header {
	if w.headers == nil {
		w.headers = make(http.Header)
	}
	return w.headers
}

func (w *testResponseWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return len(b), nil
}

func (w *testResponseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
}

func get(t *testing.T, h http.Handler, path string) *testResponseWriter {
	t.Helper()
	req, err := http.NewRequest("GET", path, nil)
	require.Equal(t, nil, err)
	rw := &testResponseWriter{}
	h.ServeHTTP(rw, req)
	return rw
}

func TestCheckShmMount(t *testing.T) {
	if _, err := os.Stat(devShmDir); err != nil {
		t.Skipf("no %s here: %v", devShmDir, err)
	}
	assert.Equal(t, nil, CheckShmMount())
}

func TestShmFreeSpace(t *testing.T) {
	assert.Equal(t, nil, ShmFreeSpace(1)())
	assert.NotEqual(t, nil, ShmFreeSpace(math.MaxUint64)(), "nobody has that much tmpfs")
}

func TestDeviceNode(t *testing.T) {
	assert.Equal(t, nil, DeviceNode("/dev/null")())

	plain := filepath.Join(t.TempDir(), "not_a_device")
	require.Equal(t, nil, os.WriteFile(plain, nil, 0o600))
	assert.NotEqual(t, nil, DeviceNode(plain)())

	err := DeviceNode(filepath.Join(t.TempDir(), "missing"))()
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestHandlerEndpoints(t *testing.T) {
	if err := CheckShmMount(); err != nil {
		t.Skipf("shm mount unavailable: %v", err)
	}

	h := Handler(Options{MinShmFree: 1, DevicePath: "/dev/null"})
	assert.Equal(t, 200, get(t, h, "/live").status)
	assert.Equal(t, 200, get(t, h, "/ready").status)
}

func TestHandlerExtraCheckGatesReadiness(t *testing.T) {
	if err := CheckShmMount(); err != nil {
		t.Skipf("shm mount unavailable: %v", err)
	}

	h := Handler(Options{Extra: []api.Checker{
		api.CheckFunc{Probe: "region-attached", Fn: func() error {
			return errors.New("region not attached yet")
		}},
	}})

	assert.Equal(t, 200, get(t, h, "/live").status, "liveness ignores readiness checks")

	rw := get(t, h, "/ready?full=1")
	assert.Equal(t, 503, rw.status)

	var body map[string]string
	require.Equal(t, nil, json.Unmarshal(rw.body, &body))
	assert.Equal(t, "region not attached yet", body["region-attached"])
}
