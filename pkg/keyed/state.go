package keyed

import "iter"

// Entry is one rendered list element: its key, the item it was rendered
// from, the render handle the factory produced, and the cleanup functions
// it owns.
//
// An entry is owned by exactly one State. It moves as the same pointer and
// is released exactly once.
type Entry[K comparable, T, H any] struct {
	Key    K
	Item   T
	Handle H

	cleanups []func()
	released bool
}

// NewEntry creates an entry. Factories usually return the result of NewEntry.
func NewEntry[K comparable, T, H any](key K, item T, handle H) *Entry[K, T, H] {
	return &Entry[K, T, H]{Key: key, Item: item, Handle: handle}
}

// OnCleanup registers fn to run when the entry is released. Cleanups run
// after the teardown hook, in reverse registration order. Registering on a
// released entry runs fn immediately.
func (e *Entry[K, T, H]) OnCleanup(fn func()) {
	if fn == nil {
		return
	}
	if e.released {
		fn()
		return
	}
	e.cleanups = append(e.cleanups, fn)
}

// Released reports whether the entry has been torn down.
func (e *Entry[K, T, H]) Released() bool {
	return e.released
}

// release runs teardown and the owned cleanups once.
func (e *Entry[K, T, H]) release(teardown Teardown[K, T, H]) {
	if e == nil || e.released {
		return
	}
	e.released = true
	if teardown != nil {
		teardown(e)
	}
	for i := len(e.cleanups) - 1; i >= 0; i-- {
		e.cleanups[i]()
	}
	e.cleanups = nil
}

// KeyFunc maps an item to its stable key.
type KeyFunc[T any, K comparable] func(item T) K

// Factory builds the entry for the item that will sit at index in the new
// list. It is only called for insertions.
type Factory[K comparable, T, H any] func(index int, item T) *Entry[K, T, H]

// Teardown releases the backend resources held by an entry. It is called
// exactly once per entry, for removals, clears and disposal.
type Teardown[K comparable, T, H any] func(entry *Entry[K, T, H])

// State is the rendered side of a keyed list: entries in render order and
// an index from key to position that always mirrors that order.
//
// A State is created once per reconciling site and reused for every pass.
// It is not safe for concurrent use.
type State[K comparable, T, H any] struct {
	entries []*Entry[K, T, H]
	index   map[K]int

	// updating is set while Apply runs.
	updating bool
}

// NewState creates an empty state.
func NewState[K comparable, T, H any]() *State[K, T, H] {
	return &State[K, T, H]{index: make(map[K]int)}
}

// Len returns the number of entries.
func (s *State[K, T, H]) Len() int {
	return len(s.entries)
}

// Keys returns the keys in render order. The result is a fresh slice.
func (s *State[K, T, H]) Keys() []K {
	keys := make([]K, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// At returns the entry at position i.
func (s *State[K, T, H]) At(i int) *Entry[K, T, H] {
	return s.entries[i]
}

// IndexOf returns the position of key.
func (s *State[K, T, H]) IndexOf(key K) (int, bool) {
	i, ok := s.index[key]
	return i, ok
}

// Lookup returns the entry for key.
func (s *State[K, T, H]) Lookup(key K) (*Entry[K, T, H], bool) {
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.entries[i], true
}

// All iterates over the entries in render order.
func (s *State[K, T, H]) All() iter.Seq2[int, *Entry[K, T, H]] {
	return func(yield func(int, *Entry[K, T, H]) bool) {
		for i, e := range s.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Dispose releases every entry and empties the state. It is used when the
// owning site unmounts.
func (s *State[K, T, H]) Dispose(teardown Teardown[K, T, H]) {
	s.begin()
	defer s.end()
	s.clear(teardown)
}

func (s *State[K, T, H]) clear(teardown Teardown[K, T, H]) {
	for _, e := range s.entries {
		e.release(teardown)
	}
	s.entries = nil
	clear(s.index)
}

func (s *State[K, T, H]) reindex() {
	if s.index == nil {
		s.index = make(map[K]int, len(s.entries))
	}
	clear(s.index)
	for i, e := range s.entries {
		s.index[e.Key] = i
	}
}
