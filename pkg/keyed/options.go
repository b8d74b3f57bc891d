package keyed

import (
	"github.com/vango-dev/keyed/internal/errors"
)

// Strategy selects how DiffKeys decides which common keys stay in place.
type Strategy uint8

const (
	// StrategyShift keeps every key whose position is explained by the
	// removals and insertions around it. It matches how most keyed list
	// renderers reason about passive shifts.
	StrategyShift Strategy = iota
	// StrategyLIS keeps a longest increasing subsequence of common keys in
	// place, which yields the fewest genuine moves.
	StrategyLIS
)

// String returns the string representation of the Strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyShift:
		return "shift"
	case StrategyLIS:
		return "lis"
	default:
		return "unknown"
	}
}

// ParseStrategy parses a strategy name. The empty string selects StrategyShift.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "shift":
		return StrategyShift, nil
	case "lis":
		return StrategyLIS, nil
	default:
		return StrategyShift, errors.New("E204").WithDetailf("got %q; valid strategies are \"shift\" and \"lis\"", name)
	}
}

type diffOptions struct {
	strategy Strategy
	passive  bool
	grouping bool
}

// DiffOption configures DiffKeys.
type DiffOption func(*diffOptions)

// WithStrategy selects the move detection strategy.
func WithStrategy(s Strategy) DiffOption {
	return func(o *diffOptions) {
		o.strategy = s
	}
}

// WithPassiveShifts also reports entries whose index changed only because
// of neighbouring insertions or removals, as moves with MoveInDOM cleared.
func WithPassiveShifts() DiffOption {
	return func(o *diffOptions) {
		o.passive = true
	}
}

// WithoutGrouping returns single-entry moves instead of merged ranges.
func WithoutGrouping() DiffOption {
	return func(o *diffOptions) {
		o.grouping = false
	}
}
