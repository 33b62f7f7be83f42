// Package metrics exposes prometheus collectors for the realtime engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spaces_active_connections",
		Help: "Number of live websocket connections.",
	})

	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spaces_broadcasts_total",
		Help: "Events fanned out to space rooms.",
	})

	SavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spaces_saves_total",
		Help: "Content writes by kind.",
	}, []string{"kind"})

	ReapedSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spaces_reaped_sessions_total",
		Help: "Sessions removed by the stale-session sweep.",
	})
)
