package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/vango-dev/keyed/internal/config"
	"github.com/vango-dev/keyed/internal/errors"
	"github.com/vango-dev/keyed/pkg/observe"
	"github.com/vango-dev/keyed/pkg/server"
	"github.com/vango-dev/keyed/pkg/snapshot"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		address    string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the reconciliation server",
		Long: `Start the HTTP and WebSocket reconciliation server.

Settings are read from --config, or from keyed.json in the working
directory if it exists. Without either, defaults are used.

Endpoints:
  POST /v1/diff     one-shot diff of two key lists
  GET  /v1/stream   WebSocket stream of snapshots and diffs
  GET  /metrics     Prometheus metrics
  GET  /healthz     liveness check

Examples:
  keyed serve
  keyed serve --config deploy/keyed.json
  keyed serve --addr 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Server.Address = address
			}
			return runServe(cmd.OutOrStdout(), cfg, verbose)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to keyed.json")
	cmd.Flags().StringVarP(&address, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	return cmd
}

// loadConfig loads path, or keyed.json in the working directory, or the
// defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if config.Exists(".") {
		return config.Load(".")
	}
	return config.New(), nil
}

func runServe(out io.Writer, cfg *config.Config, verbose bool) error {
	sc, err := cfg.ServerConfig()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	sc.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	sc.Metrics = observe.New(
		observe.WithNamespace(cfg.Metrics.Namespace),
		observe.WithSubsystem(cfg.Metrics.Subsystem),
	)

	store, err := newStore(cfg.Snapshots)
	if err != nil {
		return err
	}
	sc.Store = store

	success(out, "Listening on %s", sc.Address)
	info(out, "strategy=%s duplicates=%s snapshots=%s", sc.Strategy, sc.Duplicates, cfg.Snapshots.Backend)
	if cfg.Path() == "" {
		warn(out, "No keyed.json found, using defaults")
	}

	return server.New(sc).Run()
}

// newStore builds the snapshot store selected by the config.
func newStore(c config.SnapshotConfig) (snapshot.Store, error) {
	switch c.Backend {
	case config.BackendS3:
		return snapshot.NewS3Store(newS3Client(c), c.Bucket, c.Prefix), nil
	case config.BackendMemory, "":
		return snapshot.NewMemoryStore(snapshot.WithTTL(time.Hour)), nil
	default:
		return nil, errors.New("E122").WithDetailf("snapshots.backend %q", c.Backend)
	}
}

// newS3Client builds an S3 client from the config and the standard AWS
// environment variables. A custom endpoint switches to path-style
// addressing, which S3-compatible stores such as MinIO expect.
func newS3Client(c config.SnapshotConfig) *s3.Client {
	region := c.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
	}
	if c.Endpoint != "" {
		opts.BaseEndpoint = aws.String(c.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func envCredentials(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, errors.New("E271").
			WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set for the s3 snapshot backend")
	}
	return creds, nil
}
