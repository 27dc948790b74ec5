package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the coordinator's Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "boardhub").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the coordinator metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// Metrics holds the Prometheus instruments for one coordinator.
type Metrics struct {
	activeRooms   prometheus.Gauge
	activeMembers prometheus.Gauge
	eventsTotal   *prometheus.CounterVec
	eventsDropped *prometheus.CounterVec
	broadcasts    *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	roomsExpired  prometheus.Counter
}

// NewMetrics registers and returns the coordinator metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := MetricsConfig{
		Namespace: "boardhub",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		activeRooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_rooms",
			Help:        "Number of rooms currently held in memory",
			ConstLabels: config.ConstLabels,
		}),

		activeMembers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_members",
			Help:        "Number of joined room memberships across all rooms",
			ConstLabels: config.ConstLabels,
		}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "events_total",
			Help:        "Total inbound events processed by the coordinator",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "status"}),

		eventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "events_dropped_total",
			Help:        "Inbound events dropped without touching room state",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "broadcasts_total",
			Help:        "Outbound events fanned out to room members",
			ConstLabels: config.ConstLabels,
		}, []string{"event"}),

		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "event_duration_seconds",
			Help:        "Coordinator event processing duration in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		roomsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "rooms_expired_total",
			Help:        "Rooms removed by the idle-room sweeper",
			ConstLabels: config.ConstLabels,
		}),
	}
}
