package reconciler

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/keyed/internal/errors"
	"github.com/vango-dev/keyed/pkg/keyed"
)

// DuplicatePolicy decides what Update does with repeated keys.
type DuplicatePolicy uint8

const (
	// DuplicateWarn logs a warning and renders only the first occurrence
	// of each key.
	DuplicateWarn DuplicatePolicy = iota
	// DuplicateReject fails the pass and leaves the rendered list untouched.
	DuplicateReject
)

// String returns the string representation of the DuplicatePolicy.
func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateWarn:
		return "warn"
	case DuplicateReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseDuplicatePolicy parses a policy name. The empty string selects DuplicateWarn.
func ParseDuplicatePolicy(name string) (DuplicatePolicy, error) {
	switch name {
	case "", "warn":
		return DuplicateWarn, nil
	case "reject":
		return DuplicateReject, nil
	default:
		return DuplicateWarn, errors.New("E205").WithDetailf("got %q", name)
	}
}

// PassStats describes one reconciliation pass.
type PassStats struct {
	keyed.Stats

	// Site is the reconciler name.
	Site string
	// Entries is the number of rendered entries after the pass.
	Entries int
	// Duplicates is the number of repeated keys found in the input.
	Duplicates int
	// Duration is the wall time of the pass.
	Duration time.Duration
	// Err is set when the pass was rejected.
	Err error
}

// Observer receives a report after every pass.
type Observer interface {
	ObservePass(ctx context.Context, stats PassStats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, stats PassStats)

// ObservePass implements Observer.
func (f ObserverFunc) ObservePass(ctx context.Context, stats PassStats) {
	f(ctx, stats)
}

// Observers fans a report out to several observers.
type Observers []Observer

// ObservePass implements Observer.
func (o Observers) ObservePass(ctx context.Context, stats PassStats) {
	for _, obs := range o {
		if obs != nil {
			obs.ObservePass(ctx, stats)
		}
	}
}

type options struct {
	name     string
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
	policy   DuplicatePolicy
	diffOpts []keyed.DiffOption
}

// Option configures a Reconciler.
type Option func(*options)

// WithName names the reconciling site in logs, spans and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets a fixed logger. Without it the logger is taken from the
// context passed to Update (see slog-context), falling back to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver sets the pass observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithTracer sets the tracer used for pass spans.
// Default: otel.Tracer("keyed") from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithDuplicatePolicy sets how repeated keys are handled.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithDiffOptions passes options through to keyed.DiffKeys.
func WithDiffOptions(opts ...keyed.DiffOption) Option {
	return func(o *options) {
		o.diffOpts = append(o.diffOpts, opts...)
	}
}
