// Package observe exports Prometheus metrics for keyed list reconciliation.
//
// Metrics implements reconciler.Observer, so one instance can be shared by
// every reconciler of a process:
//
//	m := observe.New(observe.WithNamespace("shop"))
//	r := reconciler.New(keyOf, build, teardown,
//	    reconciler.WithName("cart"),
//	    reconciler.WithObserver(m),
//	)
//
// Metrics collected (namespace "keyed" by default):
//   - keyed_passes_total: Counter of passes by site and result
//   - keyed_pass_duration_seconds: Histogram of pass duration by site
//   - keyed_ops_total: Counter of applied operations by site and op
//   - keyed_duplicate_keys_total: Counter of repeated keys by site
//   - keyed_entries: Gauge of rendered entries by site
//   - keyed_stream_sessions: Gauge of open stream sessions
//   - keyed_stream_frames_total: Counter of frames sent by type
//   - keyed_stream_errors_total: Counter of stream errors by type
package observe
