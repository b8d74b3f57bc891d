package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/keyed/internal/errors"
	"github.com/vango-dev/keyed/pkg/keyed"
)

type diffFlags struct {
	old      string
	new      string
	strategy string
	passive  bool
	noGroup  bool
	json     bool
}

// diffReport is the --json output of the diff command.
type diffReport struct {
	Old      []string           `json:"old"`
	New      []string           `json:"new"`
	Strategy string             `json:"strategy"`
	Diff     *keyed.Diff[string] `json:"diff"`
	Stats    keyed.Stats        `json:"stats"`
	Result   []string           `json:"result"`
}

func diffCmd() *cobra.Command {
	var f diffFlags

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Diff two key lists",
		Long: `Compute the edit script turning one key list into another.

Keys are comma separated. An empty list is written as "".

Examples:
  keyed diff --old A,B,C --new C,A,B
  keyed diff --old A,B,C --new C,A,B --strategy lis
  keyed diff --old A,B,C,D --new A,C,E --passive --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVar(&f.old, "old", "", "Old key list (comma separated)")
	cmd.Flags().StringVar(&f.new, "new", "", "New key list (comma separated)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "shift", "Move detection strategy: shift or lis")
	cmd.Flags().BoolVar(&f.passive, "passive", false, "Report passive shifts")
	cmd.Flags().BoolVar(&f.noGroup, "no-group", false, "Do not merge contiguous moves")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print the diff as JSON")

	return cmd
}

func runDiff(out io.Writer, f diffFlags) error {
	oldKeys, err := parseKeys("--old", f.old)
	if err != nil {
		return err
	}
	newKeys, err := parseKeys("--new", f.new)
	if err != nil {
		return err
	}
	strategy, err := keyed.ParseStrategy(f.strategy)
	if err != nil {
		return err
	}

	d := keyed.DiffKeys(oldKeys, newKeys, diffOptions(strategy, f.passive, !f.noGroup)...)
	report := diffReport{
		Old:      oldKeys,
		New:      newKeys,
		Strategy: strategy.String(),
		Diff:     d,
		Stats:    d.Stats(),
		Result:   keyed.ApplyKeys(d, oldKeys),
	}
	if report.Result == nil {
		report.Result = []string{}
	}

	if f.json {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", data)
		return nil
	}

	s := report.Stats
	fmt.Fprintf(out, "old:      %s\n", strings.Join(report.Old, ","))
	fmt.Fprintf(out, "new:      %s\n", strings.Join(report.New, ","))
	fmt.Fprintf(out, "strategy: %s\n", report.Strategy)
	fmt.Fprintf(out, "diff:     %s\n", d)
	fmt.Fprintf(out, "stats:    removed=%d added=%d moved=%d passive=%d ops=%d\n",
		s.Removed, s.Added, s.Moved, s.Passive, s.MoveOps)
	fmt.Fprintf(out, "result:   %s\n", strings.Join(report.Result, ","))
	return nil
}

// parseKeys splits a comma separated key list. Keys must be non-empty and
// unique.
func parseKeys(flag, list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return []string{}, nil
	}
	parts := strings.Split(list, ",")
	keys := make([]string, 0, len(parts))
	for i, p := range parts {
		k := strings.TrimSpace(p)
		if k == "" {
			return nil, errors.New("E300").WithDetailf("%s has an empty key at position %d", flag, i)
		}
		keys = append(keys, k)
	}
	if dups := keyed.FindDuplicates(keys); len(dups) > 0 {
		return nil, errors.New("E300").
			WithDetailf("%s repeats key %q at position %d (first at %d)", flag, dups[0].Key, dups[0].At, dups[0].First)
	}
	return keys, nil
}

func diffOptions(strategy keyed.Strategy, passive, grouping bool) []keyed.DiffOption {
	opts := []keyed.DiffOption{keyed.WithStrategy(strategy)}
	if passive {
		opts = append(opts, keyed.WithPassiveShifts())
	}
	if !grouping {
		opts = append(opts, keyed.WithoutGrouping())
	}
	return opts
}
