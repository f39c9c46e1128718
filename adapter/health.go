// Package adapter provides adapters for shmregion integration with
// external systems.
package adapter

import (
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OpsMux mounts a process's operational endpoints on one mux: the
// health handler's /live and /ready probes next to Prometheus
// /metrics, where the region counters land.
func OpsMux(h healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/live", h.LiveEndpoint)
	mux.HandleFunc("/ready", h.ReadyEndpoint)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
