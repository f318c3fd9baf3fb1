package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mentor_state_writes_total",
		Help: "Total snapshot patches applied",
	})

	persistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentor_state_persist_failures_total",
		Help: "Total failed writes to durable storage by stage",
	}, []string{"stage"})

	listenerPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mentor_state_listener_panics_total",
		Help: "Total panics recovered from state subscribers",
	})
)
