package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/keyed/internal/config"
	"github.com/vango-dev/keyed/internal/errors"
	"github.com/vango-dev/keyed/pkg/snapshot"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestDiffText(t *testing.T) {
	out, err := execute(t, "diff", "--old", "A,B,C,D", "--new", "A,C,E")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "diff_text", []byte(out))
}

func TestDiffJSON(t *testing.T) {
	out, err := execute(t, "diff", "--old", "A,B,C", "--new", "C,A,B", "--strategy", "lis", "--json")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "diff_json", []byte(out))
}

func TestDiffFlags(t *testing.T) {
	out, err := execute(t, "diff", "--old", "A,B,C", "--new", "X,A,B,C", "--passive")
	require.NoError(t, err)
	assert.Contains(t, out, "diff:     shift A+2 0->1, add X@0\n")

	out, err = execute(t, "diff", "--old", "A,B,C", "--new", "C,A,B", "--no-group")
	require.NoError(t, err)
	assert.Contains(t, out, "diff:     move A 0->1, move B 1->2, move C 2->0\n")

	out, err = execute(t, "diff", "--old", "A,B", "--new", "")
	require.NoError(t, err)
	assert.Contains(t, out, "diff:     clear\n")
}

func TestDiffJSONClearHasNoNulls(t *testing.T) {
	out, err := execute(t, "diff", "--old", "A,B", "--new", "", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, "null")
	assert.Contains(t, out, `"clear": true`)
	assert.Contains(t, out, `"result": []`)
}

func TestDiffRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"duplicate key", []string{"diff", "--old", "A,B,A", "--new", "A"}, "E300"},
		{"empty key", []string{"diff", "--old", "A,,B", "--new", "A"}, "E300"},
		{"unknown strategy", []string{"diff", "--old", "A", "--new", "A", "--strategy", "greedy"}, "E204"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.True(t, errors.HasCode(err, tt.code), "error = %v, want %s", err, tt.code)
		})
	}
}

func TestCheck(t *testing.T) {
	out, err := execute(t, "check", filepath.Join("testdata", "scenarios.yaml"))
	require.NoError(t, err)
	newGoldie(t).Assert(t, "check", []byte(out))
}

func TestCheckReportsFailures(t *testing.T) {
	out, err := execute(t, "check", filepath.Join("testdata", "failing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, "E301"))
	assert.Contains(t, out, "ok    unchanged\n")
	assert.Contains(t, out, `FAIL  wrong-expectation: diff = "move A 0->1, move B 1->0", want "noop"`)
	assert.Contains(t, out, "1 passed, 1 failed\n")
}

func TestCheckMissingFile(t *testing.T) {
	_, err := execute(t, "check", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.HasCode(err, "E301"))
}

func TestCheckInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenarios: [\n"), 0644))

	_, err := execute(t, "check", path)
	assert.True(t, errors.HasCode(err, "E301"))
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestBench(t *testing.T) {
	out, err := execute(t, "bench", "--size", "50", "--rounds", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "size=50 rounds=5 churn=0.10 seed=1\n")
	assert.Contains(t, out, "shift ")
	assert.Contains(t, out, "lis ")

	_, err = execute(t, "bench", "--size", "0")
	assert.True(t, errors.HasCode(err, "E300"))
}

func TestBenchRoundsAreDeterministic(t *testing.T) {
	cfg := benchConfig{Size: 20, Rounds: 4, Churn: 0.5, Seed: 7}
	assert.Equal(t, benchRounds(cfg), benchRounds(cfg))
	assert.Len(t, benchRounds(cfg), 5)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)

	path := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"diff": {"strategy": "lis"}}`), 0644))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "lis", cfg.Diff.Strategy)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.HasCode(err, "E120"))
}

func TestNewStore(t *testing.T) {
	store, err := newStore(config.SnapshotConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &snapshot.MemoryStore{}, store)
	require.NoError(t, store.Close())

	store, err = newStore(config.SnapshotConfig{
		Backend:  config.BackendS3,
		Bucket:   "baselines",
		Region:   "us-east-1",
		Endpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	assert.IsType(t, &snapshot.S3Store{}, store)

	_, err = newStore(config.SnapshotConfig{Backend: "redis"})
	assert.True(t, errors.HasCode(err, "E122"))
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	_, err := envCredentials(context.Background())
	assert.True(t, errors.HasCode(err, "E271"))

	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	creds, err := envCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id", creds.AccessKeyID)
	assert.Equal(t, "environment", creds.Source)
}
