// Package reconciler binds a keyed.State to the functions that render it.
//
// A Reconciler is what a reactive list subscriber calls whenever its list
// value changes: Update extracts keys, checks them for duplicates, diffs
// them against the rendered state, applies the diff through the factory and
// teardown hooks, and reports the pass to the configured logger, tracer and
// observer.
//
//	r := reconciler.New(todoKey, mountTodo, unmountTodo,
//	    reconciler.WithName("todos"),
//	    reconciler.WithObserver(metrics),
//	)
//	res, err := r.Update(ctx, todos)
//
// Unlike keyed.State, a Reconciler serializes its passes, so it can be fed
// from several goroutines.
package reconciler
