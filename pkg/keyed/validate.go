package keyed

import (
	"fmt"
	"strings"

	"github.com/vango-dev/keyed/internal/errors"
)

// Duplicate describes a repeated key: the key first appeared at First and
// appears again at At.
type Duplicate[K comparable] struct {
	Key   K   `json:"key"`
	First int `json:"first"`
	At    int `json:"at"`
}

// FindDuplicates reports every repeated occurrence of a key, in order.
func FindDuplicates[K comparable](keys []K) []Duplicate[K] {
	seen := make(map[K]int, len(keys))
	var dups []Duplicate[K]
	for i, k := range keys {
		if first, ok := seen[k]; ok {
			dups = append(dups, Duplicate[K]{Key: k, First: first, At: i})
			continue
		}
		seen[k] = i
	}
	return dups
}

// Dedupe drops every repeated occurrence of a key, keeping the first one.
// kept holds the positions in keys that survived.
func Dedupe[K comparable](keys []K) (unique []K, kept []int) {
	seen := make(map[K]struct{}, len(keys))
	unique = make([]K, 0, len(keys))
	kept = make([]int, 0, len(keys))
	for i, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, k)
		kept = append(kept, i)
	}
	return unique, kept
}

// DuplicateError builds the E201 error describing dups.
func DuplicateError[K comparable](dups []Duplicate[K]) *errors.KeyedError {
	const limit = 5
	var parts []string
	for i, d := range dups {
		if i == limit {
			parts = append(parts, fmt.Sprintf("and %d more", len(dups)-limit))
			break
		}
		parts = append(parts, fmt.Sprintf("%v at %d (first at %d)", d.Key, d.At, d.First))
	}
	return errors.New("E201").
		WithDetailf("Only the first occurrence is rendered. Repeated keys: %s.", strings.Join(parts, ", ")).
		WithSuggestion("Derive keys from a unique identifier such as a database ID")
}

// ValidateDiff checks that every operation of d fits a list of oldLen
// entries being turned into one of newLen entries.
func ValidateDiff[K comparable](d *Diff[K], oldLen, newLen int) error {
	if d == nil {
		return errors.New("E202").WithDetail("diff is nil")
	}
	if d.Clear {
		if newLen != 0 {
			return errors.New("E202").WithDetailf("clear diff applied for a new list of length %d", newLen)
		}
		return nil
	}

	taken := make([]bool, oldLen)
	prev := oldLen
	for _, r := range d.Removed {
		if r.At < 0 || r.At >= oldLen {
			return errors.New("E202").WithDetailf("remove index %d is outside the old list (length %d)", r.At, oldLen)
		}
		if r.At >= prev {
			return errors.New("E202").WithDetailf("remove index %d is not in descending order", r.At)
		}
		prev = r.At
		taken[r.At] = true
	}

	targets := make([]bool, newLen)
	for _, m := range d.Moved {
		if m.Len < 1 {
			return errors.New("E202").WithDetailf("move of %v has length %d", m.Key, m.Len)
		}
		if m.From < 0 || m.From+m.Len > oldLen {
			return errors.New("E202").WithDetailf("move source %d..%d is outside the old list (length %d)", m.From, m.From+m.Len-1, oldLen)
		}
		if m.To < 0 || m.To+m.Len > newLen {
			return errors.New("E202").WithDetailf("move target %d..%d is outside the new list (length %d)", m.To, m.To+m.Len-1, newLen)
		}
		for i := 0; i < m.Len; i++ {
			if taken[m.From+i] {
				return errors.New("E202").WithDetailf("old position %d is both moved and removed, or moved twice", m.From+i)
			}
			taken[m.From+i] = true
			if targets[m.To+i] {
				return errors.New("E202").WithDetailf("new position %d is targeted twice", m.To+i)
			}
			targets[m.To+i] = true
		}
	}

	prev = -1
	for _, a := range d.Added {
		if a.At < 0 || a.At >= newLen {
			return errors.New("E202").WithDetailf("add index %d is outside the new list (length %d)", a.At, newLen)
		}
		if a.At <= prev {
			return errors.New("E202").WithDetailf("add index %d is not in ascending order", a.At)
		}
		prev = a.At
		if targets[a.At] {
			return errors.New("E202").WithDetailf("new position %d is targeted twice", a.At)
		}
		targets[a.At] = true
	}

	if got := oldLen - len(d.Removed) + len(d.Added); got != newLen {
		return errors.New("E202").WithDetailf("diff produces %d entries, want %d", got, newLen)
	}
	return nil
}
