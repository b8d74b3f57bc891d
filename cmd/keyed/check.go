package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/keyed/internal/errors"
	"github.com/vango-dev/keyed/pkg/keyed"
)

// Suite is a YAML file of diff scenarios.
type Suite struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Scenario describes one diff and what it is expected to produce.
type Scenario struct {
	Name     string   `yaml:"name"`
	Old      []string `yaml:"old"`
	New      []string `yaml:"new"`
	Strategy string   `yaml:"strategy,omitempty"`
	Passive  bool     `yaml:"passive,omitempty"`
	NoGroup  bool     `yaml:"noGroup,omitempty"`
	Expect   Expect   `yaml:"expect"`
}

// Expect lists the checked properties of a diff. Unset fields are not
// checked. Every scenario is also applied to Old and must yield New.
type Expect struct {
	Diff    *string `yaml:"diff,omitempty"`
	Removed *int    `yaml:"removed,omitempty"`
	Added   *int    `yaml:"added,omitempty"`
	Moved   *int    `yaml:"moved,omitempty"`
	Passive *int    `yaml:"passive,omitempty"`
	Clear   *bool   `yaml:"clear,omitempty"`
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <scenarios.yaml>...",
		Short: "Run YAML diff scenarios",
		Long: `Run suites of diff scenarios and verify their expectations.

Each scenario is diffed, checked against its expectations, and applied to
its old list, which must reproduce its new list exactly.

Example suite:
  scenarios:
    - name: rotate
      old: [A, B, C]
      new: [C, A, B]
      strategy: lis
      expect:
        diff: "move C 2->0"
        moved: 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), args)
		},
	}
	return cmd
}

func runCheck(out io.Writer, paths []string) error {
	var passed, failed int
	for _, path := range paths {
		suite, err := loadSuite(path)
		if err != nil {
			return err
		}
		for _, sc := range suite.Scenarios {
			if problem := sc.run(); problem != "" {
				fmt.Fprintf(out, "FAIL  %s: %s\n", sc.Name, problem)
				failed++
				continue
			}
			fmt.Fprintf(out, "ok    %s\n", sc.Name)
			passed++
		}
	}

	fmt.Fprintf(out, "%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return errors.New("E301").WithDetailf("%d of %d scenarios failed", failed, passed+failed)
	}
	return nil
}

func loadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E301").Wrap(err).WithDetail("Could not read " + path)
	}
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, errors.New("E301").WithDetail("Failed to parse " + path + ": " + err.Error())
	}
	return &suite, nil
}

// run returns a description of the first failed expectation, or "".
func (sc Scenario) run() string {
	oldKeys, _ := keyed.Dedupe(sc.Old)
	newKeys, _ := keyed.Dedupe(sc.New)

	strategy, err := keyed.ParseStrategy(sc.Strategy)
	if err != nil {
		return err.Error()
	}
	d := keyed.DiffKeys(oldKeys, newKeys, diffOptions(strategy, sc.Passive, !sc.NoGroup)...)
	if err := keyed.ValidateDiff(d, len(oldKeys), len(newKeys)); err != nil {
		return err.Error()
	}

	s := d.Stats()
	e := sc.Expect
	switch {
	case e.Diff != nil && d.String() != *e.Diff:
		return fmt.Sprintf("diff = %q, want %q", d.String(), *e.Diff)
	case e.Removed != nil && s.Removed != *e.Removed:
		return fmt.Sprintf("removed = %d, want %d", s.Removed, *e.Removed)
	case e.Added != nil && s.Added != *e.Added:
		return fmt.Sprintf("added = %d, want %d", s.Added, *e.Added)
	case e.Moved != nil && s.Moved != *e.Moved:
		return fmt.Sprintf("moved = %d, want %d", s.Moved, *e.Moved)
	case e.Passive != nil && s.Passive != *e.Passive:
		return fmt.Sprintf("passive = %d, want %d", s.Passive, *e.Passive)
	case e.Clear != nil && s.Clear != *e.Clear:
		return fmt.Sprintf("clear = %t, want %t", s.Clear, *e.Clear)
	}

	if got := keyed.ApplyKeys(d, oldKeys); !slices.Equal(got, newKeys) {
		return fmt.Sprintf("applying the diff gives %v, want %v", got, newKeys)
	}
	return ""
}
