package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/vango-dev/keyed/internal/errors"
	"github.com/vango-dev/keyed/pkg/keyed"
	"github.com/vango-dev/keyed/pkg/reconciler"
	"github.com/vango-dev/keyed/pkg/server"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "keyed.json"

// Snapshot backends.
const (
	BackendMemory = "memory"
	BackendS3     = "s3"
)

// Config represents the keyed.json configuration file.
type Config struct {
	// Server configures the HTTP and stream listener.
	Server ServerConfig `json:"server,omitempty"`

	// Diff configures DiffKeys.
	Diff DiffConfig `json:"diff,omitempty"`

	// Duplicates is the duplicate key policy: "warn" or "reject".
	Duplicates string `json:"duplicates,omitempty"`

	// Metrics configures the Prometheus collectors.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Snapshots configures where stream baselines are kept.
	Snapshots SnapshotConfig `json:"snapshots,omitempty"`

	// path is the path to the config file (not serialized)
	path string
}

// ServerConfig configures the listener. Timeouts are Go duration strings.
type ServerConfig struct {
	// Address is the listen address. Default: ":8080".
	Address string `json:"address,omitempty"`

	// ReadTimeout is the HTTP read timeout. Default: "60s".
	ReadTimeout string `json:"readTimeout,omitempty"`

	// WriteTimeout bounds writing one stream frame. Default: "10s".
	WriteTimeout string `json:"writeTimeout,omitempty"`
}

// DiffConfig configures DiffKeys.
type DiffConfig struct {
	// Strategy is "shift" or "lis". Default: "shift".
	Strategy string `json:"strategy,omitempty"`

	// PassiveShifts reports keys that only slid because of removals or
	// insertions before them.
	PassiveShifts bool `json:"passiveShifts,omitempty"`

	// Grouping merges contiguous moves into runs. Default: true.
	Grouping *bool `json:"grouping,omitempty"`
}

// MetricsConfig names the Prometheus collectors.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty"`
	Subsystem string `json:"subsystem,omitempty"`
}

// SnapshotConfig selects the snapshot store.
type SnapshotConfig struct {
	// Backend is "memory" or "s3". Default: "memory".
	Backend string `json:"backend,omitempty"`

	// Bucket is the S3 bucket. Required for the s3 backend.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is prepended to every object key.
	Prefix string `json:"prefix,omitempty"`

	// Region is the AWS region.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint, e.g. for MinIO.
	Endpoint string `json:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load loads configuration from keyed.json in the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E120").
				WithDetail("Config file not found: " + path).
				WithSuggestion("Run 'keyed serve' without --config to use defaults")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E121").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check your keyed.json for JSON syntax errors")
	}

	cfg.path = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration back to its file.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("E123").WithDetail("Config has no path; use SaveTo")
	}
	return c.SaveTo(c.path)
}

// SaveTo writes the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E123").Wrap(err)
	}

	// Add trailing newline
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E123").Wrap(err).WithDetail("Could not write " + path)
	}

	c.path = path
	return nil
}

// Path returns the path to the config file.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.path == "" {
		return "."
	}
	return filepath.Dir(c.path)
}

// applyDefaults sets default values for missing fields.
func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "60s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "10s"
	}
	if c.Diff.Strategy == "" {
		c.Diff.Strategy = keyed.StrategyShift.String()
	}
	if c.Diff.Grouping == nil {
		grouping := true
		c.Diff.Grouping = &grouping
	}
	if c.Duplicates == "" {
		c.Duplicates = reconciler.DuplicateWarn.String()
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "keyed"
	}
	if c.Snapshots.Backend == "" {
		c.Snapshots.Backend = BackendMemory
	}
}

// Validate checks every value against its allowed set.
func (c *Config) Validate() error {
	if _, err := parseDuration("server.readTimeout", c.Server.ReadTimeout); err != nil {
		return err
	}
	if _, err := parseDuration("server.writeTimeout", c.Server.WriteTimeout); err != nil {
		return err
	}
	if _, err := keyed.ParseStrategy(c.Diff.Strategy); err != nil {
		return err
	}
	if _, err := reconciler.ParseDuplicatePolicy(c.Duplicates); err != nil {
		return err
	}
	switch c.Snapshots.Backend {
	case BackendMemory:
	case BackendS3:
		if c.Snapshots.Bucket == "" {
			return errors.New("E122").
				WithDetail("snapshots.bucket is required for the s3 backend").
				WithSuggestion(`Set "bucket" under "snapshots" in keyed.json`)
		}
	default:
		return errors.New("E122").
			WithDetailf("snapshots.backend %q; valid backends are %q and %q", c.Snapshots.Backend, BackendMemory, BackendS3)
	}
	return nil
}

// GroupingEnabled reports whether contiguous moves are merged.
func (c *Config) GroupingEnabled() bool {
	return c.Diff.Grouping == nil || *c.Diff.Grouping
}

// ServerConfig converts the file settings into a server.Config. The
// snapshot store and metrics are left for the caller to attach.
func (c *Config) ServerConfig() (*server.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	sc := server.DefaultConfig()
	sc.Address = c.Server.Address
	sc.ReadTimeout, _ = parseDuration("server.readTimeout", c.Server.ReadTimeout)
	sc.WriteTimeout, _ = parseDuration("server.writeTimeout", c.Server.WriteTimeout)
	sc.Strategy, _ = keyed.ParseStrategy(c.Diff.Strategy)
	sc.PassiveShifts = c.Diff.PassiveShifts
	sc.Grouping = c.GroupingEnabled()
	sc.Duplicates, _ = reconciler.ParseDuplicatePolicy(c.Duplicates)
	return sc, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, errors.New("E122").
			WithDetailf("%s %q is not a valid duration", field, value).
			WithSuggestion(`Use a Go duration such as "30s" or "2m"`)
	}
	return d, nil
}
