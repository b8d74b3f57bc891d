package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/keyed/internal/errors"
	"github.com/vango-dev/keyed/pkg/keyed"
)

type benchConfig struct {
	Size   int
	Rounds int
	Churn  float64
	Seed   uint64
}

type benchResult struct {
	Strategy keyed.Strategy
	Elapsed  time.Duration
	Moved    int
	MoveOps  int
	Removed  int
	Added    int
}

func benchCmd() *cobra.Command {
	cfg := benchConfig{Size: 1000, Rounds: 100, Churn: 0.1, Seed: 1}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark DiffKeys on random lists",
		Long: `Benchmark both strategies on random edits of a key list.

Every round shuffles part of the list, removes and inserts keys, and
diffs the result against the previous round with each strategy. The
same seed produces the same edits.

Examples:
  keyed bench
  keyed bench --size 10000 --rounds 20 --churn 0.3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.Size, "size", cfg.Size, "Number of keys per list")
	cmd.Flags().IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "Number of edits to diff")
	cmd.Flags().Float64Var(&cfg.Churn, "churn", cfg.Churn, "Fraction of keys changed per round")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")

	return cmd
}

func runBench(out io.Writer, cfg benchConfig) error {
	if cfg.Size < 1 || cfg.Rounds < 1 {
		return errors.New("E300").WithDetail("--size and --rounds must be positive")
	}
	if cfg.Churn < 0 || cfg.Churn > 1 {
		return errors.New("E300").WithDetail("--churn must be between 0 and 1")
	}

	rounds := benchRounds(cfg)
	fmt.Fprintf(out, "size=%d rounds=%d churn=%.2f seed=%d\n", cfg.Size, cfg.Rounds, cfg.Churn, cfg.Seed)
	for _, strategy := range []keyed.Strategy{keyed.StrategyShift, keyed.StrategyLIS} {
		r := benchStrategy(strategy, rounds)
		perDiff := r.Elapsed / time.Duration(len(rounds)-1)
		fmt.Fprintf(out, "%-6s %10s/diff  moved=%d moveOps=%d removed=%d added=%d\n",
			r.Strategy, perDiff, r.Moved, r.MoveOps, r.Removed, r.Added)
	}
	return nil
}

// benchRounds generates cfg.Rounds+1 key lists, each an edit of the one
// before it.
func benchRounds(cfg benchConfig) [][]string {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	next := 0
	fresh := func() string {
		next++
		return fmt.Sprintf("k%d", next)
	}

	cur := make([]string, cfg.Size)
	for i := range cur {
		cur[i] = fresh()
	}
	rounds := [][]string{cur}

	changes := int(float64(cfg.Size) * cfg.Churn)
	for r := 0; r < cfg.Rounds; r++ {
		list := append([]string(nil), cur...)
		for i := 0; i < changes && len(list) > 1; i++ {
			switch rng.IntN(3) {
			case 0:
				a, b := rng.IntN(len(list)), rng.IntN(len(list))
				list[a], list[b] = list[b], list[a]
			case 1:
				at := rng.IntN(len(list))
				list = append(list[:at], list[at+1:]...)
			default:
				at := rng.IntN(len(list) + 1)
				list = append(list[:at], append([]string{fresh()}, list[at:]...)...)
			}
		}
		rounds = append(rounds, list)
		cur = list
	}
	return rounds
}

func benchStrategy(strategy keyed.Strategy, rounds [][]string) benchResult {
	res := benchResult{Strategy: strategy}
	start := time.Now()
	for i := 1; i < len(rounds); i++ {
		s := keyed.DiffKeys(rounds[i-1], rounds[i], keyed.WithStrategy(strategy)).Stats()
		res.Moved += s.Moved
		res.MoveOps += s.MoveOps
		res.Removed += s.Removed
		res.Added += s.Added
	}
	res.Elapsed = time.Since(start)
	return res
}
