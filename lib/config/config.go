// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable [Load] reads.
const EnvironmentVariable = "CHAINFS_CONFIG"

// Config is the tool configuration.
type Config struct {
	// Image is the container used when a command is not given
	// --image.
	Image string `yaml:"image"`

	Create   CreateConfig   `yaml:"create"`
	Logging  LoggingConfig  `yaml:"logging"`
	Mount    MountConfig    `yaml:"mount"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// CreateConfig holds the geometry used by "chainfs create" when no
// geometry flags are given. Either Size, or BlockSize together with
// Blocks, may be set.
type CreateConfig struct {
	// Size is a capacity such as "64MiB" or "1.5 GB"; the block size
	// is derived from it.
	Size string `yaml:"size"`

	BlockSize int `yaml:"block_size"`
	Blocks    int `yaml:"blocks"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: warn.
	Level string `yaml:"level"`
}

// MountConfig configures FUSE mounts.
type MountConfig struct {
	// FSName appears as the filesystem source in the mount table.
	// Default: chainfs.
	FSName string `yaml:"fs_name"`

	// AllowOther lets users other than the mounting user access the
	// mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool `yaml:"allow_other"`

	// Debug logs every FUSE request.
	Debug bool `yaml:"debug"`
}

// SnapshotConfig configures "chainfs snapshot".
type SnapshotConfig struct {
	// Compression is none, lz4, or zstd. Default: zstd.
	Compression string `yaml:"compression"`

	// Recipients are age X25519 public keys. When set, snapshots are
	// encrypted to all of them.
	Recipients []string `yaml:"recipients"`

	// IdentityFile holds age identities for restoring encrypted
	// snapshots.
	IdentityFile string `yaml:"identity_file"`
}

var (
	logLevels    = []string{"debug", "info", "warn", "error"}
	compressions = []string{"none", "lz4", "zstd"}
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging:  LoggingConfig{Level: "warn"},
		Mount:    MountConfig{FSName: "chainfs"},
		Snapshot: SnapshotConfig{Compression: "zstd"},
	}
}

// Load loads the file named by CHAINFS_CONFIG. It fails if the
// variable is unset; callers that treat configuration as optional
// check the variable first.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a chainfs.yaml file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration over the defaults and expands
// path variables. Unknown keys are rejected so that typos surface.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	// An empty document decodes as io.EOF and leaves the defaults.
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Image = expandVars(c.Image, vars)
	c.Snapshot.IdentityFile = expandVars(c.Snapshot.IdentityFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}. Values in vars take
// precedence over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, fallback := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return fallback
	})
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Create.Size != "" {
		if c.Create.BlockSize != 0 || c.Create.Blocks != 0 {
			errs = append(errs, fmt.Errorf("create.size cannot be combined with create.block_size or create.blocks"))
		}
		if _, err := humanize.ParseBytes(c.Create.Size); err != nil {
			errs = append(errs, fmt.Errorf("create.size: %w", err))
		}
	}
	if (c.Create.BlockSize == 0) != (c.Create.Blocks == 0) {
		errs = append(errs, fmt.Errorf("create.block_size and create.blocks must be set together"))
	}
	if c.Create.BlockSize < 0 || c.Create.Blocks < 0 {
		errs = append(errs, fmt.Errorf("create.block_size and create.blocks must not be negative"))
	}

	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", logLevels))
	}
	if !slices.Contains(compressions, c.Snapshot.Compression) {
		errs = append(errs, fmt.Errorf("snapshot.compression must be one of: %v", compressions))
	}
	if c.Mount.FSName == "" {
		errs = append(errs, fmt.Errorf("mount.fs_name is required"))
	}

	return errors.Join(errs...)
}

// CreateSize returns create.size in bytes, or 0 when unset.
func (c *Config) CreateSize() (int64, error) {
	if c.Create.Size == "" {
		return 0, nil
	}
	size, err := humanize.ParseBytes(c.Create.Size)
	if err != nil {
		return 0, fmt.Errorf("create.size: %w", err)
	}
	return int64(size), nil
}

// SlogLevel converts logging.level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
