package keyed

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/vango-dev/keyed/internal/errors"
)

type node struct {
	id int
}

// harness records factory and teardown calls for a string-keyed list.
type harness struct {
	nextID   int
	built    []string
	released []string
}

func (h *harness) build(index int, item string) *Entry[string, string, *node] {
	h.nextID++
	h.built = append(h.built, item)
	return NewEntry(item, item, &node{id: h.nextID})
}

func (h *harness) teardown(e *Entry[string, string, *node]) {
	h.released = append(h.released, e.Key)
}

func (h *harness) update(s *State[string, string, *node], next []string, opts ...DiffOption) *Diff[string] {
	d := DiffKeys(s.Keys(), next, opts...)
	Apply(d, s, next, h.build, h.teardown)
	return d
}

func TestApplyBuildsMovesAndReleases(t *testing.T) {
	h := &harness{}
	s := NewState[string, string, *node]()

	h.update(s, keys("ABCD"))
	require.Equal(t, keys("ABCD"), s.Keys())
	assert.Equal(t, keys("ABCD"), h.built)

	a, _ := s.Lookup("A")
	d, _ := s.Lookup("D")

	h.update(s, keys("DXAC"))
	assert.Equal(t, keys("DXAC"), s.Keys())
	assert.Equal(t, []string{"B"}, h.released)
	assert.Equal(t, keys("ABCDX"), h.built)

	// Moved entries are the same objects.
	gotA, ok := s.Lookup("A")
	require.True(t, ok)
	assert.Same(t, a, gotA)
	gotD, _ := s.Lookup("D")
	assert.Same(t, d, gotD)

	for i, k := range s.Keys() {
		idx, ok := s.IndexOf(k)
		require.True(t, ok)
		assert.Equal(t, i, idx)
		assert.Equal(t, k, s.At(i).Key)
	}
}

func TestApplyClear(t *testing.T) {
	h := &harness{}
	s := NewState[string, string, *node]()
	h.update(s, keys("ABC"))

	d := h.update(s, nil)
	assert.True(t, d.Clear)
	assert.Equal(t, 0, s.Len())
	assert.ElementsMatch(t, keys("ABC"), h.released)
	_, ok := s.Lookup("A")
	assert.False(t, ok)
}

func TestApplyRefreshesRetainedItems(t *testing.T) {
	type todo struct {
		ID    string
		Title string
	}
	s := NewState[string, todo, int]()
	build := func(i int, item todo) *Entry[string, todo, int] { return NewEntry(item.ID, item, i) }

	first := []todo{{"1", "write"}, {"2", "test"}}
	Apply(DiffKeys(nil, []string{"1", "2"}), s, first, build, nil)

	second := []todo{{"2", "test more"}, {"1", "write"}}
	Apply(DiffKeys(s.Keys(), []string{"2", "1"}), s, second, build, nil)

	e, _ := s.Lookup("2")
	assert.Equal(t, "test more", e.Item.Title)
	assert.Equal(t, 1, e.Handle, "handle is kept from the original build")
}

func TestEntryCleanupsRunOnceInReverse(t *testing.T) {
	var order []string
	s := NewState[string, string, int]()
	build := func(_ int, item string) *Entry[string, string, int] {
		e := NewEntry(item, item, 0)
		e.OnCleanup(func() { order = append(order, item+"1") })
		e.OnCleanup(func() { order = append(order, item+"2") })
		return e
	}
	teardown := func(e *Entry[string, string, int]) { order = append(order, "teardown "+e.Key) }

	Apply(DiffKeys(nil, keys("AB")), s, keys("AB"), build, teardown)
	a, _ := s.Lookup("A")

	Apply(DiffKeys(s.Keys(), keys("B")), s, keys("B"), build, teardown)
	assert.Equal(t, []string{"teardown A", "A2", "A1"}, order)
	assert.True(t, a.Released())

	// Releasing again is a no-op; late cleanups run immediately.
	a.release(teardown)
	a.OnCleanup(func() { order = append(order, "late") })
	assert.Equal(t, []string{"teardown A", "A2", "A1", "late"}, order)

	s.Dispose(teardown)
	assert.Equal(t, []string{"teardown A", "A2", "A1", "late", "teardown B", "B2", "B1"}, order)
	assert.Equal(t, 0, s.Len())
}

func TestApplyReentrantPanics(t *testing.T) {
	s := NewState[string, string, int]()
	var build Factory[string, string, int]
	build = func(_ int, item string) *Entry[string, string, int] {
		Apply(DiffKeys(s.Keys(), keys("Z")), s, keys("Z"), build, nil)
		return NewEntry(item, item, 0)
	}

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*kerrors.KeyedError)
		require.True(t, ok, "panic value %T", r)
		assert.Equal(t, "E203", err.Code)

		// The state is usable again after the panic unwinds.
		Apply(DiffKeys(s.Keys(), keys("Q")), s, keys("Q"), func(_ int, item string) *Entry[string, string, int] {
			return NewEntry(item, item, 0)
		}, nil)
		assert.Equal(t, keys("Q"), s.Keys())
	}()
	Apply(DiffKeys(nil, keys("A")), s, keys("A"), build, nil)
}

func TestApplyFactoryPanicPropagates(t *testing.T) {
	s := NewState[string, string, int]()
	assert.PanicsWithValue(t, "boom", func() {
		Apply(DiffKeys(nil, keys("A")), s, keys("A"), func(int, string) *Entry[string, string, int] {
			panic("boom")
		}, nil)
	})
}

func TestApplyZeroValueState(t *testing.T) {
	var s State[string, string, int]
	Apply(DiffKeys(nil, keys("AB")), &s, keys("AB"), func(_ int, item string) *Entry[string, string, int] {
		return NewEntry(item, item, 0)
	}, nil)
	i, ok := s.IndexOf("B")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestApplyRandomSequences(t *testing.T) {
	universe := keys("ABCDEFGHIJKLMN")
	r := rand.New(rand.NewSource(99))

	for _, opts := range [][]DiffOption{nil, {WithPassiveShifts()}, {WithStrategy(StrategyLIS)}} {
		h := &harness{}
		s := NewState[string, string, *node]()
		live := make(map[string]*Entry[string, string, *node])

		for i := 0; i < 300; i++ {
			next := randomKeys(r, universe)
			h.update(s, next, opts...)

			require.Equal(t, next, nilIfEmpty(s.Keys()))
			for k, e := range live {
				if got, ok := s.Lookup(k); ok {
					require.Same(t, e, got, "entry for %s was rebuilt", k)
				} else {
					require.True(t, e.Released(), "entry for %s leaked", k)
					delete(live, k)
				}
			}
			for _, e := range s.All() {
				require.False(t, e.Released())
				live[e.Key] = e
			}
		}
		require.Equal(t, len(h.built)-s.Len(), len(h.released), fmt.Sprint(opts))
	}
}

func TestStateAllStopsEarly(t *testing.T) {
	h := &harness{}
	s := NewState[string, string, *node]()
	h.update(s, keys("ABCD"))

	var seen []string
	for i, e := range s.All() {
		seen = append(seen, e.Key)
		if i == 1 {
			break
		}
	}
	assert.Equal(t, keys("AB"), seen)
}
