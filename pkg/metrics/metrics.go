package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Hosted data service metrics
	DatastoreOperations *prometheus.CounterVec
	DatastoreLatency    *prometheus.HistogramVec

	// Notification feed metrics
	FallbackProbes   *prometheus.CounterVec
	FeedLoads        *prometheus.CounterVec
	ActiveViews      prometheus.Gauge
	RealtimeEvents   *prometheus.CounterVec
	DebouncedReloads prometheus.Counter

	// Secondary side effects (notification insert, email, realtime publish)
	BestEffortFailures *prometheus.CounterVec
}

// New creates the application metrics and registers them with reg.
// A nil registerer leaves them unregistered, which is what tests want.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DatastoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datastore_operations_total",
			Help:      "Total number of hosted data service operations",
		}, []string{"operation", "table", "status"}),
		DatastoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "datastore_operation_duration_seconds",
			Help:      "Duration of hosted data service operations",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"operation", "table"}),

		FallbackProbes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_fallback_probes_total",
			Help:      "Adoption fallback probes by candidate column and outcome",
		}, []string{"column", "outcome"}),
		FeedLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_feed_loads_total",
			Help:      "Notification feed loads by the source that produced them",
		}, []string{"source"}),
		ActiveViews: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notification_active_views",
			Help:      "Currently open notification streams",
		}),
		RealtimeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_total",
			Help:      "Change feed events handled by notification views",
		}, []string{"table", "type", "outcome"}),
		DebouncedReloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_debounced_reloads_total",
			Help:      "Feed reloads fired after the adoption update debounce",
		}),

		BestEffortFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_effort_failures_total",
			Help:      "Secondary side effects that failed and were only logged",
		}, []string{"kind"}),
	}
}

// Nop returns unregistered metrics.
func Nop() *Metrics {
	return New("dogfinder", nil)
}
