// Package metrics exposes Prometheus instruments for the coordinator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WaitingPeers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ruletka_waiting_peers",
		Help: "Peers currently searching for a partner.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ruletka_active_sessions",
		Help: "Paired two-party sessions currently alive.",
	})

	MatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ruletka_matches_total",
		Help: "Successful pairings since process start.",
	})

	ReapedWaitersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ruletka_reaped_waiters_total",
		Help: "Waiting entries evicted by the expiry sweep.",
	})

	ReapedSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ruletka_reaped_sessions_total",
		Help: "Orphaned sessions removed by the expiry sweep.",
	})

	SignalsRelayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ruletka_signals_relayed_total",
		Help: "Signaling payloads forwarded between session members.",
	})

	SignalsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ruletka_signals_dropped_total",
		Help: "Signaling payloads dropped for lack of an active session.",
	})
)
