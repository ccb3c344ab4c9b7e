package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline and ingestion counters. Registered on the default registry; the
// stream subcommand exposes them over /metrics.

var (
	ResolverResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covertrack_resolver_results_total",
		Help: "Resolution outcomes by kind (price/chain) and source tag.",
	}, []string{"kind", "source"})

	ResolverMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covertrack_resolver_misses_total",
		Help: "Resolutions that exhausted every strategy.",
	}, []string{"kind"})

	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "covertrack_stream_reconnects_total",
		Help: "WebSocket reconnect cycles.",
	})

	StreamEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covertrack_stream_events_total",
		Help: "Inbound streaming events by kind.",
	}, []string{"kind"})

	PicksPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "covertrack_picks_persisted_total",
		Help: "Weekly pick rows persisted.",
	})

	Misses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covertrack_misses_total",
		Help: "Miss-log entries by stage.",
	}, []string{"stage"})

	Promotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covertrack_promotions_total",
		Help: "Promotion gate outcomes by decision.",
	}, []string{"decision"})

	MonitorTriggers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covertrack_monitor_triggers_total",
		Help: "Trigger-bridge firings by condition.",
	}, []string{"condition"})
)
