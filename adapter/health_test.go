package adapter

import (
	"errors"
	"net/http"
	"testing"

	"github.com/heptiolabs/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestOpsMuxEndpoints(t *testing.T) {
	h := healthcheck.NewHandler()
	h.AddReadinessCheck("gate", func() error { return errors.New("not yet") })
	mux := OpsMux(h)

	assert.Equal(t, 200, get(t, mux, "/live").status)
	assert.Equal(t, 503, get(t, mux, "/ready").status, "the failing gate holds readiness down")

	rw := get(t, mux, "/metrics")
	assert.Equal(t, 200, rw.status)
	assert.Contains(t, string(rw.body), "go_goroutines", "the default registry serves")
}
