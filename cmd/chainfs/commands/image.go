// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/config"
)

// ImageParams are the flags shared by every container command.
// Exported so that [cli.BindFlags] sees it as a [cli.FlagBinder]
// when embedded.
type ImageParams struct {
	Image      string
	ConfigPath string
	Verbose    bool
}

// AddFlags registers --image, --config, and --verbose.
func (p *ImageParams) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&p.Image, "image", "i", "", "container image path (default: image from the config file)")
	flagSet.StringVar(&p.ConfigPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+")")
	flagSet.BoolVarP(&p.Verbose, "verbose", "v", false, "log debug detail to stderr")
}

// session is the resolved configuration of one invocation.
type session struct {
	config    *config.Config
	logger    *slog.Logger
	imagePath string
}

func (p *ImageParams) setup() (*session, error) {
	cfg, err := p.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration: %w", err)
	}

	level := cfg.SlogLevel()
	if p.Verbose {
		level = slog.LevelDebug
	}
	imagePath := p.Image
	if imagePath == "" {
		imagePath = cfg.Image
	}
	return &session{
		config:    cfg,
		logger:    cli.NewCommandLogger(level),
		imagePath: imagePath,
	}, nil
}

func (p *ImageParams) loadConfig() (*config.Config, error) {
	switch {
	case p.ConfigPath != "":
		cfg, err := config.LoadFile(p.ConfigPath)
		if err != nil {
			return nil, cli.Validation("%w", err)
		}
		return cfg, nil
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err := config.Load()
		if err != nil {
			return nil, cli.Validation("%w", err)
		}
		return cfg, nil
	default:
		return config.Default(), nil
	}
}

func (s *session) requireImage() (string, error) {
	if s.imagePath == "" {
		return "", cli.Validation("no container image: pass --image or set image in the config file")
	}
	return s.imagePath, nil
}

// open mounts the session's image.
func (s *session) open() (*chainfs.FS, error) {
	path, err := s.requireImage()
	if err != nil {
		return nil, err
	}
	fsys, err := chainfs.Open(path, chainfs.WithLogger(s.logger))
	if err != nil {
		return nil, cli.FromEngine(err)
	}
	return fsys, nil
}

// withImage sets up the session, opens the image, runs fn, and closes
// the image. A close failure is reported when fn succeeded.
func (p *ImageParams) withImage(fn func(*chainfs.FS, *session) error) error {
	s, err := p.setup()
	if err != nil {
		return err
	}
	fsys, err := s.open()
	if err != nil {
		return err
	}
	runErr := fn(fsys, s)
	closeErr := fsys.Close()
	if runErr != nil {
		return cli.FromEngine(runErr)
	}
	return cli.FromEngine(closeErr)
}
