// Package config loads merkstore configuration from TOML or YAML files
// and opens the configured store.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jrhy/merkstore/mast"
	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendMemory  = "memory"
	BackendFile    = "file"
	BackendBolt    = "bolt"
	BackendLevelDB = "leveldb"
	BackendS3      = "s3"
)

// ValidBackends contains all backend names.
var ValidBackends = []string{BackendMemory, BackendFile, BackendBolt, BackendLevelDB, BackendS3}

// Config is the configuration of a merkstore.
type Config struct {
	Store   StoreConfig   `toml:"store" yaml:"store"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
}

// StoreConfig selects and tunes the tree's persistence.
type StoreConfig struct {
	// Backend is one of ValidBackends.
	Backend string `toml:"backend" yaml:"backend"`

	// Path is the directory or database file for the file, bolt and
	// leveldb backends.
	Path string `toml:"path" yaml:"path"`

	// BranchFactor is the tree's average node width. It is fixed when
	// a store is created.
	BranchFactor uint `toml:"branch_factor" yaml:"branch_factor"`

	// NodeCacheSize is the number of decoded nodes kept in memory.
	NodeCacheSize int `toml:"node_cache_size" yaml:"node_cache_size"`

	// StoreParallelism bounds concurrent node writes during a commit.
	StoreParallelism int `toml:"store_parallelism" yaml:"store_parallelism"`

	// IncreasingHeights rejects commits that don't advance the height.
	IncreasingHeights bool `toml:"increasing_heights" yaml:"increasing_heights"`

	S3 S3Config `toml:"s3" yaml:"s3"`
}

// S3Config locates the bucket for the s3 backend.
type S3Config struct {
	Bucket string `toml:"bucket" yaml:"bucket"`
	Prefix string `toml:"prefix" yaml:"prefix"`
	// Endpoint overrides the AWS endpoint, for S3-compatible services.
	Endpoint string `toml:"endpoint" yaml:"endpoint"`
	Region   string `toml:"region" yaml:"region"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`
	// Format is json or console.
	Format string `toml:"format" yaml:"format"`
}

// DefaultConfig returns a configuration for a file store in "data".
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:          BackendFile,
			Path:             "data",
			BranchFactor:     mast.DefaultBranchFactor,
			NodeCacheSize:    mast.DefaultNodeCacheSize,
			StoreParallelism: mast.DefaultStoreParallelism,
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a TOML file, or a YAML file if the
// name ends in .yaml or .yml. Missing values are filled with defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validation errors.
var (
	ErrInvalidBackend      = errors.New("store backend must be one of: memory, file, bolt, leveldb, s3")
	ErrEmptyPath           = errors.New("store path cannot be empty for this backend")
	ErrInvalidBranchFactor = errors.New("store branch_factor must be at least 2")
	ErrInvalidCacheSize    = errors.New("store node_cache_size must be positive")
	ErrInvalidParallelism  = errors.New("store store_parallelism must be positive")
	ErrEmptyBucket         = errors.New("store s3 bucket cannot be empty")
	ErrInvalidLogLevel     = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat    = errors.New("log format must be 'console' or 'json'")
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate checks the store configuration for errors.
func (c *StoreConfig) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendFile, BackendBolt, BackendLevelDB:
		if c.Path == "" {
			return ErrEmptyPath
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return ErrEmptyBucket
		}
	default:
		return ErrInvalidBackend
	}
	if c.BranchFactor < 2 {
		return ErrInvalidBranchFactor
	}
	if c.NodeCacheSize <= 0 {
		return ErrInvalidCacheSize
	}
	if c.StoreParallelism <= 0 {
		return ErrInvalidParallelism
	}
	return nil
}

// Validate checks the logging configuration for errors.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch c.Format {
	case "console", "json":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

// WriteFile writes the configuration to a TOML file.
func WriteFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return f.Close()
}
