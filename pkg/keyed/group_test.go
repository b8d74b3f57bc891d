package keyed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupAdjacentMoves(t *testing.T) {
	tests := []struct {
		name string
		in   []Move[string]
		want []Move[string]
	}{
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
		{
			name: "parallel run merges",
			in: []Move[string]{
				{From: 2, Len: 1, To: 5, MoveInDOM: true, Key: "C"},
				{From: 0, Len: 1, To: 3, MoveInDOM: true, Key: "A"},
				{From: 1, Len: 1, To: 4, MoveInDOM: true, Key: "B"},
			},
			want: []Move[string]{
				{From: 0, Len: 3, To: 3, MoveInDOM: true, Key: "A"},
			},
		},
		{
			name: "contiguous source with split destination",
			in: []Move[string]{
				{From: 0, Len: 1, To: 2, MoveInDOM: true, Key: "A"},
				{From: 1, Len: 1, To: 0, MoveInDOM: true, Key: "B"},
			},
			want: []Move[string]{
				{From: 0, Len: 1, To: 2, MoveInDOM: true, Key: "A"},
				{From: 1, Len: 1, To: 0, MoveInDOM: true, Key: "B"},
			},
		},
		{
			name: "passive shifts do not join genuine moves",
			in: []Move[string]{
				{From: 0, Len: 1, To: 1, MoveInDOM: true, Key: "A"},
				{From: 1, Len: 1, To: 2, MoveInDOM: false, Key: "B"},
				{From: 2, Len: 1, To: 3, MoveInDOM: false, Key: "C"},
			},
			want: []Move[string]{
				{From: 0, Len: 1, To: 1, MoveInDOM: true, Key: "A"},
				{From: 1, Len: 2, To: 2, MoveInDOM: false, Key: "B"},
			},
		},
		{
			name: "already ranged moves extend",
			in: []Move[string]{
				{From: 0, Len: 2, To: 4, MoveInDOM: true, Key: "A"},
				{From: 2, Len: 1, To: 6, MoveInDOM: true, Key: "C"},
			},
			want: []Move[string]{
				{From: 0, Len: 3, To: 4, MoveInDOM: true, Key: "A"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GroupAdjacentMoves(tt.in))
		})
	}
}

func TestGroupAdjacentMovesDoesNotMutateInput(t *testing.T) {
	in := []Move[string]{
		{From: 1, Len: 1, To: 2, MoveInDOM: true, Key: "B"},
		{From: 0, Len: 1, To: 1, MoveInDOM: true, Key: "A"},
	}
	GroupAdjacentMoves(in)
	assert.Equal(t, "B", in[0].Key)
}

func TestExpandMoves(t *testing.T) {
	old := keys("ABCDE")
	grouped := []Move[string]{
		{From: 3, Len: 2, To: 0, MoveInDOM: true, Key: "D"},
	}
	assert.Equal(t, []Move[string]{
		{From: 3, Len: 1, To: 0, MoveInDOM: true, Key: "D"},
		{From: 4, Len: 1, To: 1, MoveInDOM: true, Key: "E"},
	}, ExpandMoves(grouped, old))
}
