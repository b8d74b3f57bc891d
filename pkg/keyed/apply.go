package keyed

import (
	"slices"

	"github.com/vango-dev/keyed/internal/errors"
)

// Apply executes d against s.
//
// items is the new item sequence the diff was computed for: build is called
// with items[at] for every insertion, and retained entries get their Item
// refreshed from it. Removed and cleared entries are passed to teardown and
// then run their own cleanups. A panic in build propagates to the caller.
//
// d must have been computed from s.Keys(). Apply does not validate it; use
// ValidateDiff when the diff comes from an untrusted source.
func Apply[K comparable, T, H any](d *Diff[K], s *State[K, T, H], items []T, build Factory[K, T, H], teardown Teardown[K, T, H]) {
	s.begin()
	defer s.end()

	if d.Clear {
		s.clear(teardown)
		return
	}

	s.entries = reorder(d, s.entries,
		func(e *Entry[K, T, H]) { e.release(teardown) },
		func(a Add[K]) *Entry[K, T, H] {
			var item T
			if a.At < len(items) {
				item = items[a.At]
			}
			e := build(a.At, item)
			e.Key = a.Key
			return e
		},
	)

	if len(items) == len(s.entries) {
		for i, e := range s.entries {
			e.Item = items[i]
		}
	}
	s.reindex()
}

// ApplyKeys applies d to a plain key list and returns the resulting list.
// It is the model of Apply used to check diffs without a live state.
func ApplyKeys[K comparable](d *Diff[K], old []K) []K {
	if d.Clear {
		return nil
	}
	return reorder(d, slices.Clone(old), nil, func(a Add[K]) K { return a.Key })
}

// reorder carries out the index arithmetic shared by Apply and ApplyKeys.
//
// Moves are taken out first, while every From still refers to the old list.
// Removals follow in descending order so that pending positions stay valid.
// Moved and added values are then placed at their final positions, and the
// entries that did not move fill the remaining positions in their surviving
// order.
func reorder[K comparable, E any](d *Diff[K], cur []E, drop func(E), create func(Add[K]) E) []E {
	type slot struct {
		v  E
		ok bool
	}

	slots := make([]slot, len(cur))
	for i, v := range cur {
		slots[i] = slot{v: v, ok: true}
	}

	held := make(map[int]E)
	for _, m := range d.Moved {
		for i := 0; i < m.Len; i++ {
			held[m.To+i] = slots[m.From+i].v
			slots[m.From+i] = slot{}
		}
	}

	for _, r := range d.Removed {
		if s := slots[r.At]; s.ok && drop != nil {
			drop(s.v)
		}
		slots = slices.Delete(slots, r.At, r.At+1)
	}

	// Holes left by moves are still in slots, so this is the new length.
	next := make([]slot, len(slots)+len(d.Added))
	for to, v := range held {
		next[to] = slot{v: v, ok: true}
	}
	for _, a := range d.Added {
		next[a.At] = slot{v: create(a), ok: true}
	}

	j := 0
	for _, s := range slots {
		if !s.ok {
			continue
		}
		for next[j].ok {
			j++
		}
		next[j] = s
		j++
	}

	out := make([]E, len(next))
	for i, s := range next {
		out[i] = s.v
	}
	return out
}

func (s *State[K, T, H]) begin() {
	if s.updating {
		panic(errors.New("E203").
			WithSuggestion("Schedule the nested update after the current pass returns"))
	}
	s.updating = true
}

func (s *State[K, T, H]) end() {
	s.updating = false
}
