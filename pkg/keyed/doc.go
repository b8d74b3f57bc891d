// Package keyed implements stable-key list reconciliation.
//
// Given the keys of the list as it is currently rendered and the keys of
// the list that should be rendered next, DiffKeys computes an edit script
// of removals, moves and insertions. Apply executes that script against a
// live State, calling a caller-supplied factory for new entries and a
// teardown hook for discarded ones.
//
// # Passive shifts
//
// When an item is inserted at the front of a list, every item behind it
// changes its absolute index without having been reordered. DiffKeys
// tells those passive shifts apart from genuine relocations: only the
// latter are reported as moves with MoveInDOM set. Backends that keep an
// index-to-node mapping can ask for passive shifts too with
// WithPassiveShifts; they are reported with MoveInDOM cleared and are
// always safe to execute as real moves.
//
// # Lifecycle
//
//	state := keyed.NewState[string, Todo, *Node]()
//	d := keyed.DiffKeys(state.Keys(), keysOf(todos))
//	keyed.Apply(d, state, todos, build, unmount)
//
// Entries are created by the factory, relocated as the same pointer when
// they move, and released exactly once when they are removed, cleared, or
// when the state is disposed.
//
// # Duplicate keys
//
// Keys must be unique within one snapshot. The engine does not detect
// duplicates; FindDuplicates and Dedupe let callers warn about them and
// collapse a sequence to its first occurrences before diffing.
//
// Nothing in this package is safe for concurrent use.
package keyed
