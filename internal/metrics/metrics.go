// Package metrics provides Prometheus instrumentation for the signaling
// server. It exposes gauges for connection, queue, and room counts, counters
// for matches and relayed signals, and a histogram for match wait time.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsActive tracks the current number of active WebSocket connections.
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_connections_active",
		Help: "Current number of active WebSocket connections",
	})

	// QueueSize tracks the current number of participants waiting in the
	// matchmaking queue.
	QueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_match_queue_size",
		Help: "Current number of participants in the matchmaking queue",
	})

	// MatchesTotal counts successful pairings, labeled by matching category.
	MatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_matches_total",
		Help: "Total number of successful pairings",
	}, []string{"category"})

	// RoomsActive tracks the current number of live call rooms.
	RoomsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_rooms_active",
		Help: "Current number of live call rooms",
	})

	// SignalsRelayed counts relayed signaling payloads, labeled by kind
	// (receive-offer, receive-answer, receive-ice).
	SignalsRelayed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_signals_relayed_total",
		Help: "Total number of signaling payloads relayed to peers",
	}, []string{"kind"})

	// SignalsDropped counts relay attempts to identifiers with no live
	// binding, labeled by kind. Every drop is answered with relay-failed.
	SignalsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_signals_dropped_total",
		Help: "Total number of signaling payloads dropped (recipient unreachable)",
	}, []string{"kind"})

	// MatchWait records the time a participant spent queued before pairing.
	MatchWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulse_match_wait_seconds",
		Help:    "Time from join-queue to match-found",
		Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 120},
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsActive,
		QueueSize,
		MatchesTotal,
		RoomsActive,
		SignalsRelayed,
		SignalsDropped,
		MatchWait,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
