package keyed

import "slices"

// GroupAdjacentMoves merges runs of moves whose sources and destinations
// are both contiguous into ranged moves.
//
// The input may be in any order; the result is sorted by From. Grouping
// only changes how moves are chunked: the same keys end up at the same
// positions. Genuine moves and passive shifts are never merged together.
func GroupAdjacentMoves[K comparable](moves []Move[K]) []Move[K] {
	if len(moves) < 2 {
		return moves
	}

	sorted := slices.Clone(moves)
	slices.SortStableFunc(sorted, func(a, b Move[K]) int { return a.From - b.From })

	out := make([]Move[K], 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if next.From == cur.From+cur.Len &&
			next.To == cur.To+cur.Len &&
			next.MoveInDOM == cur.MoveInDOM {
			cur.Len += next.Len
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}
