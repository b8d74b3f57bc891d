package reconciler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	slogctx "github.com/veqryn/slog-context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/keyed/internal/errors"
	"github.com/vango-dev/keyed/pkg/keyed"
)

const defaultTracerName = "keyed"

// Result is the outcome of one Update.
type Result[K comparable] struct {
	// Diff is the edit script that was applied.
	Diff *keyed.Diff[K]
	// Keys are the rendered keys after the pass, with duplicates collapsed.
	Keys []K
	// Duplicates lists repeated keys that were dropped.
	Duplicates []keyed.Duplicate[K]
	// Duration is the wall time of the pass.
	Duration time.Duration
}

// Reconciler owns the rendered state of one keyed list.
type Reconciler[K comparable, T, H any] struct {
	mu       sync.Mutex
	owner    atomic.Uint64 // goroutine holding mu, 0 when idle
	state    *keyed.State[K, T, H]
	keyOf    keyed.KeyFunc[T, K]
	build    keyed.Factory[K, T, H]
	teardown keyed.Teardown[K, T, H]
	opts     options
}

// New creates a Reconciler with an empty state.
func New[K comparable, T, H any](keyOf keyed.KeyFunc[T, K], build keyed.Factory[K, T, H], teardown keyed.Teardown[K, T, H], opts ...Option) *Reconciler[K, T, H] {
	o := options{name: "list"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(defaultTracerName)
	}
	return &Reconciler[K, T, H]{
		state:    keyed.NewState[K, T, H](),
		keyOf:    keyOf,
		build:    build,
		teardown: teardown,
		opts:     o,
	}
}

// Name returns the site name.
func (r *Reconciler[K, T, H]) Name() string {
	return r.opts.name
}

// Update reconciles the rendered list with items.
//
// With DuplicateReject, repeated keys fail the pass with an E201 error and
// nothing is applied. Panics from the factory propagate. Calling Update,
// Dispose or any accessor from a factory or teardown of the running pass
// panics with E203.
func (r *Reconciler[K, T, H]) Update(ctx context.Context, items []T) (*Result[K], error) {
	defer r.enter()()

	start := time.Now()
	ctx, span := r.opts.tracer.Start(ctx, "keyed.reconcile", trace.WithAttributes(
		attribute.String("keyed.site", r.opts.name),
		attribute.Int("keyed.items", len(items)),
	))
	defer span.End()
	logger := r.logger(ctx)

	keys := make([]K, len(items))
	for i, item := range items {
		keys[i] = r.keyOf(item)
	}

	dups := keyed.FindDuplicates(keys)
	if len(dups) > 0 {
		derr := keyed.DuplicateError(dups)
		if r.opts.policy == DuplicateReject {
			span.RecordError(derr)
			span.SetStatus(codes.Error, derr.Message)
			logger.Error("list rejected", "site", r.opts.name, "duplicates", len(dups), "error", derr.FormatCompact())
			r.observe(ctx, PassStats{
				Site:       r.opts.name,
				Entries:    r.state.Len(),
				Duplicates: len(dups),
				Duration:   time.Since(start),
				Err:        derr,
			})
			return nil, derr
		}

		logger.Warn("duplicate keys in list", "site", r.opts.name, "duplicates", len(dups), "error", derr.FormatCompact())
		var kept []int
		keys, kept = keyed.Dedupe(keys)
		unique := make([]T, len(kept))
		for i, at := range kept {
			unique[i] = items[at]
		}
		items = unique
	}

	d := keyed.DiffKeys(r.state.Keys(), keys, r.opts.diffOpts...)
	keyed.Apply(d, r.state, items, r.build, r.teardown)

	stats := d.Stats()
	elapsed := time.Since(start)
	span.SetAttributes(
		attribute.Int("keyed.removed", stats.Removed),
		attribute.Int("keyed.added", stats.Added),
		attribute.Int("keyed.moved", stats.Moved),
		attribute.Int("keyed.passive", stats.Passive),
		attribute.Bool("keyed.clear", stats.Clear),
		attribute.Int("keyed.duplicates", len(dups)),
	)
	logger.Debug("list reconciled",
		"site", r.opts.name,
		"entries", r.state.Len(),
		"removed", stats.Removed,
		"added", stats.Added,
		"moved", stats.Moved,
		"clear", stats.Clear,
		"duration", elapsed,
	)
	r.observe(ctx, PassStats{
		Stats:      stats,
		Site:       r.opts.name,
		Entries:    r.state.Len(),
		Duplicates: len(dups),
		Duration:   elapsed,
	})

	return &Result[K]{
		Diff:       d,
		Keys:       keys,
		Duplicates: dups,
		Duration:   elapsed,
	}, nil
}

// Keys returns the rendered keys in order.
func (r *Reconciler[K, T, H]) Keys() []K {
	defer r.enter()()
	return r.state.Keys()
}

// Len returns the number of rendered entries.
func (r *Reconciler[K, T, H]) Len() int {
	defer r.enter()()
	return r.state.Len()
}

// Lookup returns the rendered entry for key.
func (r *Reconciler[K, T, H]) Lookup(key K) (*keyed.Entry[K, T, H], bool) {
	defer r.enter()()
	return r.state.Lookup(key)
}

// Dispose tears down every rendered entry. The reconciler can be reused
// afterwards; the next Update starts from an empty list.
func (r *Reconciler[K, T, H]) Dispose(ctx context.Context) {
	defer r.enter()()

	n := r.state.Len()
	r.state.Dispose(r.teardown)
	r.logger(ctx).Debug("list disposed", "site", r.opts.name, "entries", n)
	r.observe(ctx, PassStats{
		Stats: keyed.Stats{Clear: n > 0},
		Site:  r.opts.name,
	})
}

// enter locks the reconciler and returns the unlock func. A call made on
// the goroutine that already holds the lock can only come from a factory or
// teardown of the running pass; it panics instead of deadlocking.
func (r *Reconciler[K, T, H]) enter() func() {
	gid := goroutineID()
	if r.owner.Load() == gid {
		panic(errors.New("E203").
			WithDetailf("list %q was used from a factory or teardown of its own pass", r.opts.name).
			WithSuggestion("Schedule the nested update after the current pass returns"))
	}
	r.mu.Lock()
	r.owner.Store(gid)
	return func() {
		r.owner.Store(0)
		r.mu.Unlock()
	}
}

func (r *Reconciler[K, T, H]) logger(ctx context.Context) *slog.Logger {
	if r.opts.logger != nil {
		return r.opts.logger
	}
	return slogctx.FromCtx(ctx)
}

func (r *Reconciler[K, T, H]) observe(ctx context.Context, stats PassStats) {
	if r.opts.observer != nil {
		r.opts.observer.ObservePass(ctx, stats)
	}
}
