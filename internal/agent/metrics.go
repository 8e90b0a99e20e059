package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Turn-level counters, exported on the gateway's /metrics endpoint.
var (
	turnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raymond_turns_total",
		Help: "Completed conversation turns.",
	})

	turnErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raymond_turn_errors_total",
		Help: "Turns that failed with a generation error.",
	})

	factsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raymond_facts_committed_total",
		Help: "Facts extracted and committed to long-term memory.",
	})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "raymond_turn_duration_seconds",
		Help:    "End-to-end turn latency, including inline extraction.",
		Buckets: prometheus.DefBuckets,
	})
)
