package vdom

import (
	"math/rand"
	"slices"
	"strings"
	"testing"
)

// list builds a <ul> of keyed <li> items from a string of one-letter keys.
func list(keys string) *VNode {
	var items []*VNode
	for _, k := range strings.Split(keys, "") {
		if k == "" {
			continue
		}
		items = append(items, Li(Key(k), Text("item "+k)))
	}
	return Ul(ID("list"), items)
}

// render assigns HIDs the way a server does before the first diff.
func render(n *VNode) *VNode {
	AssignHIDs(n, NewHIDGenerator())
	return n
}

// applyChildPatches replays the child list patches of one parent on a list
// of HIDs, the way a client does: removals, then detach every moved run,
// then place moves and inserts in ascending index order.
func applyChildPatches(t *testing.T, children []string, patches []Patch, newHID func(*VNode) string) []string {
	t.Helper()
	for _, p := range patches {
		if p.Op == PatchRemoveNode {
			i := slices.Index(children, p.HID)
			if i < 0 {
				t.Fatalf("RemoveNode(%s): no such child in %v", p.HID, children)
			}
			children = slices.Delete(children, i, i+1)
		}
	}

	runs := make(map[string][]string)
	for _, p := range patches {
		if p.Op != PatchMoveNode {
			continue
		}
		i := slices.Index(children, p.HID)
		if i < 0 || i+p.Count > len(children) {
			t.Fatalf("MoveNode(%s+%d): run not found in %v", p.HID, p.Count, children)
		}
		runs[p.HID] = slices.Clone(children[i : i+p.Count])
		children = slices.Delete(children, i, i+p.Count)
	}

	for _, p := range patches {
		switch p.Op {
		case PatchMoveNode:
			children = slices.Insert(children, p.Index, runs[p.HID]...)
		case PatchInsertNode:
			children = slices.Insert(children, p.Index, newHID(p.Node))
		}
	}
	return children
}

func childHIDs(n *VNode) []string {
	out := make([]string, len(n.Children))
	for i, c := range n.Children {
		out[i] = c.HID
	}
	return out
}

func countOps(patches []Patch, op PatchOp) int {
	n := 0
	for _, p := range patches {
		if p.Op == op {
			n++
		}
	}
	return n
}

func TestDiffKeyedChildren(t *testing.T) {
	tests := []struct {
		name    string
		prev    string
		next    string
		removes int
		moves   int
		inserts int
	}{
		{"identical", "ABC", "ABC", 0, 0, 0},
		{"append", "AB", "ABC", 0, 0, 1},
		{"prepend shifts passively", "ABC", "XABC", 0, 0, 1},
		{"remove middle", "ABC", "AC", 1, 0, 0},
		{"swap", "AB", "BA", 0, 2, 0},
		{"rotate left", "ABCD", "BCDA", 0, 2, 0},
		{"insert between", "AB", "AXYB", 0, 0, 2},
		{"mixed", "ABCDE", "EXBCA", 1, 2, 1},
		{"replace all", "AB", "XY", 2, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := render(list(tt.prev))
			next := list(tt.next)
			patches := Diff(prev, next)

			if got := countOps(patches, PatchRemoveNode); got != tt.removes {
				t.Errorf("RemoveNode count = %d, want %d (%v)", got, tt.removes, patches)
			}
			if got := countOps(patches, PatchMoveNode); got != tt.moves {
				t.Errorf("MoveNode count = %d, want %d (%v)", got, tt.moves, patches)
			}
			if got := countOps(patches, PatchInsertNode); got != tt.inserts {
				t.Errorf("InsertNode count = %d, want %d (%v)", got, tt.inserts, patches)
			}
		})
	}
}

func TestDiffKeyedChildrenReplayMatchesNext(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := strings.Split("ABCDEFGHIJKLMNOP", "")

	for i := 0; i < 500; i++ {
		prevKeys := randomSubset(rng, alphabet)
		nextKeys := randomSubset(rng, alphabet)

		gen := NewHIDGenerator()
		prev := list(strings.Join(prevKeys, ""))
		AssignHIDs(prev, gen)
		next := list(strings.Join(nextKeys, ""))

		patches := Diff(prev, next)
		got := applyChildPatches(t, childHIDs(prev), patches, func(n *VNode) string {
			AssignHIDs(n, gen)
			return n.HID
		})

		if want := childHIDs(next); !slices.Equal(got, want) {
			t.Fatalf("%v -> %v: replay = %v, want %v\npatches: %v", prevKeys, nextKeys, got, want, patches)
		}
	}
}

func randomSubset(rng *rand.Rand, alphabet []string) []string {
	keys := slices.Clone(alphabet)
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	return keys[:rng.Intn(len(keys)+1)]
}

func TestDiffKeepsHIDsOfMatchedChildren(t *testing.T) {
	prev := render(list("ABC"))
	hidB := prev.Children[1].HID

	next := list("CBA")
	Diff(prev, next)

	if next.HID != prev.HID {
		t.Errorf("root HID = %q, want %q", next.HID, prev.HID)
	}
	if next.Children[1].HID != hidB {
		t.Errorf("B HID = %q, want %q", next.Children[1].HID, hidB)
	}
}

func TestDiffGroupsAdjacentMoves(t *testing.T) {
	prev := render(list("ABCDE"))
	next := list("DEABC")
	patches := Diff(prev, next)

	var moves []Patch
	for _, p := range patches {
		if p.Op == PatchMoveNode {
			moves = append(moves, p)
		}
	}
	if len(moves) != 2 {
		t.Fatalf("moves = %v, want 2 grouped moves", moves)
	}
	if moves[0].Index != 0 || moves[0].Count != 2 || moves[0].HID != prev.Children[3].HID {
		t.Errorf("moves[0] = %v, want D+2 -> 0", moves[0])
	}
	if moves[1].Index != 2 || moves[1].Count != 3 || moves[1].HID != prev.Children[0].HID {
		t.Errorf("moves[1] = %v, want A+3 -> 2", moves[1])
	}
}

func TestDiffDuplicateKeysCollapse(t *testing.T) {
	prev := render(Ul(Li(Key("a"), "a1"), Li(Key("a"), "a2"), Li(Key("b"), "b")))
	stale := prev.Children[1].HID

	next := Ul(Li(Key("b"), "b"), Li(Key("b"), "again"), Li(Key("a"), "a1"))
	patches := Diff(prev, next)

	if len(next.Children) != 2 {
		t.Fatalf("next children = %d, want 2 after collapsing", len(next.Children))
	}
	if got := KeysOf(next.Children); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("KeysOf(next) = %v, want [b a]", got)
	}
	if patches[0].Op != PatchRemoveNode || patches[0].HID != stale {
		t.Errorf("patches[0] = %v, want RemoveNode(%s)", patches[0], stale)
	}
}

func TestDiffMixedKeyedAndUnkeyed(t *testing.T) {
	prev := render(Div(P("header"), Span(Key("x"), "x"), Span(Key("y"), "y")))
	next := Div(P("header"), Span(Key("y"), "y"), Span(Key("x"), "x"))
	patches := Diff(prev, next)

	if next.Children[0].HID != prev.Children[0].HID {
		t.Errorf("unkeyed header was not matched: HID %q, want %q", next.Children[0].HID, prev.Children[0].HID)
	}
	if got := countOps(patches, PatchInsertNode) + countOps(patches, PatchRemoveNode); got != 0 {
		t.Errorf("insert+remove count = %d, want 0 (%v)", got, patches)
	}
}

func TestDiffClearList(t *testing.T) {
	prev := render(list("ABC"))
	next := Ul(ID("list"), Li(Text("empty")))
	next.Children = nil
	patches := Diff(prev, next)

	if got := countOps(patches, PatchRemoveNode); got != 3 {
		t.Fatalf("RemoveNode count = %d, want 3", got)
	}
	if patches[0].HID != prev.Children[2].HID {
		t.Errorf("first removal = %s, want last child %s", patches[0].HID, prev.Children[2].HID)
	}
}

func TestDiffText(t *testing.T) {
	prev := render(P("hello"))
	next := P("world")
	patches := Diff(prev, next)

	if len(patches) != 1 {
		t.Fatalf("len(patches) = %d, want 1", len(patches))
	}
	if patches[0].Op != PatchSetText || patches[0].HID != prev.HID || patches[0].Value != "world" {
		t.Errorf("patch = %v, want SetText(%s, \"world\")", patches[0], prev.HID)
	}
}

func TestDiffProps(t *testing.T) {
	prev := render(Div(Class("a"), ID("x"), Data("n", "1")))
	next := Div(Class("b"), Data("n", "1"), Attribute("hidden", true))
	patches := Diff(prev, next)

	got := make(map[string]Patch)
	for _, p := range patches {
		got[p.Op.String()+":"+p.Key] = p
	}
	if p, ok := got["SetAttr:class"]; !ok || p.Value != "b" {
		t.Errorf("missing SetAttr class=b in %v", patches)
	}
	if _, ok := got["RemoveAttr:id"]; !ok {
		t.Errorf("missing RemoveAttr id in %v", patches)
	}
	if p, ok := got["SetAttr:hidden"]; !ok || p.Value != "true" {
		t.Errorf("missing SetAttr hidden=true in %v", patches)
	}
	if len(patches) != 3 {
		t.Errorf("len(patches) = %d, want 3", len(patches))
	}
}

func TestDiffReplace(t *testing.T) {
	prev := render(Div(Span("a")))
	next := Div(P("a"))
	patches := Diff(prev, next)

	if len(patches) != 1 || patches[0].Op != PatchReplaceNode {
		t.Fatalf("patches = %v, want one ReplaceNode", patches)
	}
	if patches[0].HID != prev.Children[0].HID {
		t.Errorf("ReplaceNode HID = %s, want %s", patches[0].HID, prev.Children[0].HID)
	}
}

func TestDiffUnkeyedChildren(t *testing.T) {
	prev := render(Ul(Li("a"), Li("b"), Li("c")))
	next := Ul(Li("a"), Li("B"))
	patches := Diff(prev, next)

	if patches[0].Op != PatchRemoveNode || patches[0].HID != prev.Children[2].HID {
		t.Errorf("patches[0] = %v, want RemoveNode of last child", patches[0])
	}
	if got := countOps(patches, PatchSetText); got != 1 {
		t.Errorf("SetText count = %d, want 1", got)
	}

	grown := Ul(Li("a"), Li("B"), Li("c"), Li("d"))
	patches = Diff(next, grown)
	if got := countOps(patches, PatchInsertNode); got != 2 {
		t.Errorf("InsertNode count = %d, want 2", got)
	}
}

func TestDiffNil(t *testing.T) {
	if patches := Diff(nil, nil); len(patches) != 0 {
		t.Errorf("Diff(nil, nil) = %v, want none", patches)
	}
	prev := render(Div())
	if patches := Diff(prev, nil); len(patches) != 1 || patches[0].Op != PatchRemoveNode {
		t.Errorf("Diff(prev, nil) = %v, want RemoveNode", patches)
	}
}

func TestPatchOpString(t *testing.T) {
	tests := []struct {
		op   PatchOp
		want string
	}{
		{PatchSetText, "SetText"},
		{PatchMoveNode, "MoveNode"},
		{PatchReplaceNode, "ReplaceNode"},
		{PatchOp(0xFF), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}
