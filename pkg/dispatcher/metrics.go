package dispatcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queuedCallbacks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forge_dispatcher_queued_callbacks",
		Help: "Number of callbacks currently waiting in the dispatcher's submit queue.",
	})
	evictionTickSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forge_dispatcher_eviction_tick_seconds",
		Help:    "Duration of one evict_expired_entries pass.",
		Buckets: prometheus.DefBuckets,
	})
	entitiesEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forge_dispatcher_entities_evicted_total",
		Help: "Number of entities removed by the eviction loop, by kind.",
	}, []string{"kind"})
	commandTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forge_dispatcher_command_timeouts_total",
		Help: "Number of client calls that observed CommandTimeout waiting on the dispatcher.",
	})
)
