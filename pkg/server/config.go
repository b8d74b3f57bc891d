package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/keyed/pkg/keyed"
	"github.com/vango-dev/keyed/pkg/observe"
	"github.com/vango-dev/keyed/pkg/reconciler"
	"github.com/vango-dev/keyed/pkg/snapshot"
)

// SessionHeader carries the stream session ID in the upgrade response.
const SessionHeader = "X-Keyed-Session"

// Config holds the server configuration.
type Config struct {
	// Address is the listen address. Default: ":8080".
	Address string

	// ReadTimeout is the HTTP read timeout and the maximum time a stream
	// waits for the next client frame. Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing one stream frame. Default: 10 seconds.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown. Default: 30 seconds.
	ShutdownTimeout time.Duration

	// MaxMessageSize is the maximum size of one websocket message or diff
	// request body. Default: 4MB.
	MaxMessageSize int64

	// Strategy, PassiveShifts and Grouping configure DiffKeys for streams
	// and are the defaults of /v1/diff.
	Strategy      keyed.Strategy
	PassiveShifts bool
	Grouping      bool

	// Duplicates decides how repeated keys are handled.
	Duplicates reconciler.DuplicatePolicy

	// Store persists stream baselines for resumption. Default: a MemoryStore.
	Store snapshot.Store

	// Metrics receives pass and stream metrics. Nil disables them.
	Metrics *observe.Metrics

	// Gatherer is served on /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Tracer starts request spans and is handed to stream reconcilers.
	// Default: the "keyed" tracer of the global provider.
	Tracer trace.Tracer

	// CheckOrigin validates websocket origins. Nil allows same-origin only.
	CheckOrigin func(r *http.Request) bool

	// Logger is the base logger. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         ":8080",
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxMessageSize:  4 << 20,
		Strategy:        keyed.StrategyShift,
		Grouping:        true,
	}
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Address == "" {
		c.Address = defaults.Address
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	if c.Store == nil {
		c.Store = snapshot.NewMemoryStore(snapshot.WithTTL(time.Hour))
	}
	if c.Gatherer == nil {
		c.Gatherer = prometheus.DefaultGatherer
	}
	if c.Tracer == nil {
		c.Tracer = otel.Tracer("keyed")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// diffOptions returns the DiffKeys options for the given overrides.
func (c *Config) diffOptions(strategy keyed.Strategy, passive, grouping bool) []keyed.DiffOption {
	opts := []keyed.DiffOption{keyed.WithStrategy(strategy)}
	if passive {
		opts = append(opts, keyed.WithPassiveShifts())
	}
	if !grouping {
		opts = append(opts, keyed.WithoutGrouping())
	}
	return opts
}
