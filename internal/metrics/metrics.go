// Package metrics exposes Prometheus collectors for the coordination core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attune_events_emitted_total",
		Help: "Total number of events accepted onto the bus queue, labelled by source.",
	}, []string{"source"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attune_events_dropped_total",
		Help: "Total number of events dropped by the bus, labelled by reason.",
	}, []string{"reason"})

	EventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attune_events_processed_total",
		Help: "Total number of events that passed gating and conflict resolution.",
	})

	ListenerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attune_listener_errors_total",
		Help: "Total number of listener callbacks that returned an error or panicked.",
	})

	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attune_actions_executed_total",
		Help: "Total number of actions executed, labelled by action and source.",
	}, []string{"action", "source"})

	ActionsBlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attune_actions_blocked_total",
		Help: "Total number of action requests that did not execute, labelled by reason.",
	}, []string{"reason"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "attune_queue_depth",
		Help: "Current number of events waiting on the bus queue.",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
