package observe

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/keyed/pkg/reconciler"
)

// Config configures the metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "keyed").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "keyed",
		// Passes are usually well under a millisecond.
		Buckets:  []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		Registry: prometheus.DefaultRegisterer,
	}
}

// Metrics holds the reconciliation collectors.
type Metrics struct {
	passes       *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	ops          *prometheus.CounterVec
	duplicates   *prometheus.CounterVec
	entries      *prometheus.GaugeVec

	sessions     prometheus.Gauge
	frames       *prometheus.CounterVec
	streamErrors *prometheus.CounterVec
}

// New registers the collectors and returns the Metrics.
// It panics if a collector with the same name is already registered.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		passes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "passes_total",
			Help:        "Total number of reconciliation passes",
			ConstLabels: config.ConstLabels,
		}, []string{"site", "result"}),

		passDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_duration_seconds",
			Help:        "Reconciliation pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"site"}),

		ops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "ops_total",
			Help:        "Total number of applied list operations",
			ConstLabels: config.ConstLabels,
		}, []string{"site", "op"}),

		duplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "duplicate_keys_total",
			Help:        "Total number of repeated keys seen in input lists",
			ConstLabels: config.ConstLabels,
		}, []string{"site"}),

		entries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "entries",
			Help:        "Number of rendered entries after the last pass",
			ConstLabels: config.ConstLabels,
		}, []string{"site"}),

		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stream_sessions",
			Help:        "Number of open stream sessions",
			ConstLabels: config.ConstLabels,
		}),

		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stream_frames_total",
			Help:        "Total number of frames sent to stream clients",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		streamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stream_errors_total",
			Help:        "Total stream errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// ObservePass implements reconciler.Observer.
func (m *Metrics) ObservePass(_ context.Context, s reconciler.PassStats) {
	result := "ok"
	switch {
	case s.Err != nil:
		result = "rejected"
	case s.Duplicates > 0:
		result = "collapsed"
	}
	m.passes.WithLabelValues(s.Site, result).Inc()
	m.passDuration.WithLabelValues(s.Site).Observe(s.Duration.Seconds())
	if s.Duplicates > 0 {
		m.duplicates.WithLabelValues(s.Site).Add(float64(s.Duplicates))
	}
	if s.Err != nil {
		return
	}

	m.entries.WithLabelValues(s.Site).Set(float64(s.Entries))
	if s.Clear {
		m.ops.WithLabelValues(s.Site, "clear").Inc()
	}
	m.addOps(s.Site, "remove", s.Removed)
	m.addOps(s.Site, "add", s.Added)
	m.addOps(s.Site, "move", s.Moved)
	m.addOps(s.Site, "shift", s.Passive)
}

func (m *Metrics) addOps(site, op string, n int) {
	if n > 0 {
		m.ops.WithLabelValues(site, op).Add(float64(n))
	}
}

// SessionOpened records a new stream session.
func (m *Metrics) SessionOpened() {
	m.sessions.Inc()
}

// SessionClosed records the end of a stream session.
func (m *Metrics) SessionClosed() {
	m.sessions.Dec()
}

// FrameSent records one frame sent to a stream client.
func (m *Metrics) FrameSent(frameType string) {
	m.frames.WithLabelValues(frameType).Inc()
}

// StreamError records a stream error by type.
func (m *Metrics) StreamError(errorType string) {
	m.streamErrors.WithLabelValues(errorType).Inc()
}

// Handler returns an HTTP handler serving the metrics in g.
// A nil g serves prometheus.DefaultGatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ reconciler.Observer = (*Metrics)(nil)
