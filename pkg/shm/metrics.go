package shm

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	regionOpens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shmregion",
		Name:      "opens_total",
		Help:      "Backing stores opened and mapped, by backend and outcome.",
	}, []string{"backend", "outcome"})

	regionUnmaps = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shmregion",
		Name:      "unmaps_total",
		Help:      "Regions unmapped by Close or the leak finalizer.",
	})

	staleUnlinks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shmregion",
		Name:      "stale_unlinks_total",
		Help:      "Leftover objects removed before re-creation.",
	})

	populateFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shmregion",
		Name:      "populate_fallbacks_total",
		Help:      "Physical populations that used the lock/unlock walk.",
	})
)

func init() {
	prometheus.MustRegister(regionOpens, regionUnmaps, staleUnlinks, populateFallbacks)
}

func outcomeLabel(created bool) string {
	if created {
		return "created"
	}
	return "attached"
}
