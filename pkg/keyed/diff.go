package keyed

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// AddMode tells a backend how an insertion relates to the existing list.
type AddMode uint8

const (
	// AddNormal inserts at a position among existing entries.
	AddNormal AddMode = iota
	// AddAppend is used when the old list was empty: every insertion lands
	// after the previous one and no move detection was performed.
	AddAppend
)

// String returns the string representation of the AddMode.
func (m AddMode) String() string {
	switch m {
	case AddNormal:
		return "normal"
	case AddAppend:
		return "append"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m AddMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *AddMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "normal", "":
		*m = AddNormal
	case "append":
		*m = AddAppend
	default:
		return fmt.Errorf("keyed: unknown add mode %q", text)
	}
	return nil
}

// Remove deletes the entry at position At of the old list.
type Remove struct {
	At int `json:"at"`
}

// Move relocates Len consecutive entries starting at old position From so
// that they start at position To of the new list.
type Move[K comparable] struct {
	From int `json:"from"`
	Len  int `json:"len"`
	To   int `json:"to"`
	// MoveInDOM is set for genuine reorders. A move with MoveInDOM cleared
	// is a passive shift: its index changed only because of insertions or
	// removals around it.
	MoveInDOM bool `json:"moveInDom"`
	// Key is the key of the first moved entry.
	Key K `json:"key"`
}

// Add inserts a new entry with Key at position At of the new list.
type Add[K comparable] struct {
	At   int     `json:"at"`
	Key  K       `json:"key"`
	Mode AddMode `json:"mode"`
}

// Diff is the edit script turning one keyed list into another.
//
// Removed positions refer to the old list and are sorted in descending
// order. Added positions refer to the new list and are ascending. Clear
// means "discard everything"; it is only set when the new list is empty.
type Diff[K comparable] struct {
	Removed []Remove  `json:"removed"`
	Moved   []Move[K] `json:"moved"`
	Added   []Add[K]  `json:"added"`
	Clear   bool      `json:"clear"`
}

// diffJSON is the wire shape of Diff: operation lists are never null.
type diffJSON[K comparable] struct {
	Removed []Remove  `json:"removed"`
	Moved   []Move[K] `json:"moved"`
	Added   []Add[K]  `json:"added"`
	Clear   bool      `json:"clear"`
}

// MarshalJSON implements json.Marshaler. Empty operation lists are encoded
// as [] so consumers always see the same shape.
func (d Diff[K]) MarshalJSON() ([]byte, error) {
	return json.Marshal(diffJSON[K]{
		Removed: orEmpty(d.Removed),
		Moved:   orEmpty(d.Moved),
		Added:   orEmpty(d.Added),
		Clear:   d.Clear,
	})
}

func orEmpty[E any](s []E) []E {
	if s == nil {
		return []E{}
	}
	return s
}

// IsEmpty reports whether applying the diff would change nothing visible.
// Passive shifts do not count as changes.
func (d *Diff[K]) IsEmpty() bool {
	if d == nil {
		return true
	}
	if d.Clear || len(d.Removed) > 0 || len(d.Added) > 0 {
		return false
	}
	for _, m := range d.Moved {
		if m.MoveInDOM {
			return false
		}
	}
	return true
}

// Stats summarizes a diff.
type Stats struct {
	Removed int  `json:"removed"`
	Added   int  `json:"added"`
	Moved   int  `json:"moved"`   // entries relocated by genuine moves
	Passive int  `json:"passive"` // entries reported as passive shifts
	MoveOps int  `json:"moveOps"` // move operations after grouping
	Clear   bool `json:"clear"`
}

// Stats counts the operations of the diff.
func (d *Diff[K]) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	s := Stats{
		Removed: len(d.Removed),
		Added:   len(d.Added),
		MoveOps: len(d.Moved),
		Clear:   d.Clear,
	}
	for _, m := range d.Moved {
		if m.MoveInDOM {
			s.Moved += m.Len
		} else {
			s.Passive += m.Len
		}
	}
	return s
}

// String renders the diff in a compact, deterministic form used by logs
// and the CLI.
func (d *Diff[K]) String() string {
	if d == nil {
		return "<nil>"
	}
	if d.Clear {
		return "clear"
	}
	var parts []string
	for _, r := range d.Removed {
		parts = append(parts, fmt.Sprintf("remove@%d", r.At))
	}
	for _, m := range d.Moved {
		kind := "move"
		if !m.MoveInDOM {
			kind = "shift"
		}
		if m.Len == 1 {
			parts = append(parts, fmt.Sprintf("%s %v %d->%d", kind, m.Key, m.From, m.To))
		} else {
			parts = append(parts, fmt.Sprintf("%s %v+%d %d->%d", kind, m.Key, m.Len-1, m.From, m.To))
		}
	}
	for _, a := range d.Added {
		op := "add"
		if a.Mode == AddAppend {
			op = "append"
		}
		parts = append(parts, fmt.Sprintf("%s %v@%d", op, a.Key, a.At))
	}
	if len(parts) == 0 {
		return "noop"
	}
	return strings.Join(parts, ", ")
}

// DiffKeys computes the edit script that turns a list with keys oldKeys
// into a list with keys newKeys. Both slices must hold unique keys.
//
// A key present in both lists is never removed and re-added: it is either
// left in place, reported as a passive shift (only with WithPassiveShifts)
// or moved.
func DiffKeys[K comparable](oldKeys, newKeys []K, opts ...DiffOption) *Diff[K] {
	o := diffOptions{grouping: true}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Diff[K]{}
	switch {
	case len(oldKeys) == 0 && len(newKeys) == 0:
		return d
	case len(newKeys) == 0:
		d.Clear = true
		return d
	case len(oldKeys) == 0:
		d.Added = make([]Add[K], len(newKeys))
		for i, k := range newKeys {
			d.Added[i] = Add[K]{At: i, Key: k, Mode: AddAppend}
		}
		return d
	}

	newPos := make(map[K]int, len(newKeys))
	for i, k := range newKeys {
		newPos[k] = i
	}
	oldPos := make(map[K]int, len(oldKeys))
	for i, k := range oldKeys {
		oldPos[k] = i
	}

	// Collected ascending, reported descending.
	var removedAsc []int
	for i, k := range oldKeys {
		if _, ok := newPos[k]; !ok {
			removedAsc = append(removedAsc, i)
		}
	}
	if len(removedAsc) > 0 {
		d.Removed = make([]Remove, len(removedAsc))
		for i, at := range removedAsc {
			d.Removed[len(removedAsc)-1-i] = Remove{At: at}
		}
	}

	var addedAt []int
	for i, k := range newKeys {
		if _, ok := oldPos[k]; !ok {
			d.Added = append(d.Added, Add[K]{At: i, Key: k, Mode: AddNormal})
			addedAt = append(addedAt, i)
		}
	}

	var stable func(oldIndex, newIndex int) bool
	switch o.strategy {
	case StrategyLIS:
		stable = lisStable(oldKeys, newKeys, newPos)
	default:
		stable = func(oldIndex, newIndex int) bool {
			return expectedPosition(oldIndex, removedAsc, addedAt) == newIndex
		}
	}

	for from, k := range oldKeys {
		to, ok := newPos[k]
		if !ok {
			continue
		}
		if stable(from, to) {
			if o.passive && from != to {
				d.Moved = append(d.Moved, Move[K]{From: from, Len: 1, To: to, Key: k})
			}
			continue
		}
		d.Moved = append(d.Moved, Move[K]{From: from, Len: 1, To: to, MoveInDOM: true, Key: k})
	}

	if o.grouping {
		d.Moved = GroupAdjacentMoves(d.Moved)
	}
	return d
}

// expectedPosition returns where the entry at old position oldIndex lands
// in the new list if its order relative to the other surviving entries is
// preserved.
//
// removedAsc and addedAt hold the removed old positions and the added new
// positions, both ascending.
func expectedPosition(oldIndex int, removedAsc, addedAt []int) int {
	removedBefore := sort.SearchInts(removedAsc, oldIndex)
	withoutAdditions := oldIndex - removedBefore

	// Additions at or before the landing spot push it right, which can bring
	// further additions in front of it. Widen until the count settles.
	addedBefore := countAtOrBefore(addedAt, withoutAdditions)
	expected := withoutAdditions + addedBefore
	for {
		n := countAtOrBefore(addedAt, expected)
		if n == addedBefore {
			return expected
		}
		addedBefore = n
		expected = withoutAdditions + addedBefore
	}
}

// countAtOrBefore counts values in the ascending slice that are <= v.
func countAtOrBefore(asc []int, v int) int {
	return sort.SearchInts(asc, v+1)
}

// lisStable marks the entries on a longest increasing subsequence of old
// positions (in new order) as stable. Those entries keep their relative
// order, so every other common entry is a genuine move.
func lisStable[K comparable](oldKeys, newKeys []K, newPos map[K]int) func(int, int) bool {
	oldIndex := make(map[K]int, len(oldKeys))
	for i, k := range oldKeys {
		if _, ok := newPos[k]; ok {
			oldIndex[k] = i
		}
	}

	// seq[i] is the old position of the i-th common key in new order.
	seq := make([]int, 0, len(oldIndex))
	for _, k := range newKeys {
		if i, ok := oldIndex[k]; ok {
			seq = append(seq, i)
		}
	}

	keep := make(map[int]bool, len(seq))
	for _, i := range longestIncreasing(seq) {
		keep[seq[i]] = true
	}
	return func(from, _ int) bool { return keep[from] }
}

// longestIncreasing returns the indices into seq of one longest strictly
// increasing subsequence.
func longestIncreasing(seq []int) []int {
	if len(seq) == 0 {
		return nil
	}
	// tails[l] is the index of the smallest tail of an increasing run of
	// length l+1; prev links each element to its predecessor in its run.
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))
	for i, v := range seq {
		l := sort.Search(len(tails), func(j int) bool { return seq[tails[j]] >= v })
		if l > 0 {
			prev[i] = tails[l-1]
		} else {
			prev[i] = -1
		}
		if l == len(tails) {
			tails = append(tails, i)
		} else {
			tails[l] = i
		}
	}

	out := make([]int, len(tails))
	for i, k := len(tails)-1, tails[len(tails)-1]; i >= 0; i-- {
		out[i] = k
		k = prev[k]
	}
	return out
}

// ExpandMoves splits grouped moves back into single-entry moves, filling
// in each key from the old list.
func ExpandMoves[K comparable](moves []Move[K], oldKeys []K) []Move[K] {
	var out []Move[K]
	for _, m := range moves {
		for i := 0; i < m.Len; i++ {
			key := m.Key
			if m.From+i < len(oldKeys) {
				key = oldKeys[m.From+i]
			}
			out = append(out, Move[K]{From: m.From + i, Len: 1, To: m.To + i, MoveInDOM: m.MoveInDOM, Key: key})
		}
	}
	slices.SortFunc(out, func(a, b Move[K]) int { return a.From - b.From })
	return out
}
