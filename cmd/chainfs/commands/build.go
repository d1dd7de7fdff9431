// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/layout"
)

type buildParams struct {
	ImageParams
	Force bool `json:"force" flag:"force,f" desc:"overwrite an existing image"`
}

func buildCommand() *cli.Command {
	var params buildParams

	return &cli.Command{
		Name:    "build",
		Summary: "Build a container from a layout file",
		Description: `Create a container and populate it from a JSONC layout file listing
directories and files. Relative source paths in the layout are
resolved against the layout file's directory. When the layout sets
no geometry, the create section of the config file is used.

Layout example:

  {
    "size": "1MiB",
    "entries": [
      {"path": "/etc", "dir": true},
      {"path": "/etc/motd", "content": "hello\n"},
      {"path": "/bin/tool", "source": "build/tool"}, // host file
    ],
  }`,
		Usage: "chainfs build -i <image> [--force] <layout.jsonc>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("build", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("expected one layout file, got %d arguments", len(args))
			}
			layoutPath := args[0]
			s, err := params.setup()
			if err != nil {
				return err
			}
			imagePath, err := s.requireImage()
			if err != nil {
				return err
			}

			plan, err := layout.ReadFile(layoutPath)
			if err != nil {
				return cli.Validation("%w", err)
			}
			if !plan.HasGeometry() {
				blockSize, blockCount, err := createGeometry("", 0, 0, s.config)
				if err != nil {
					return err
				}
				plan.BlockSize, plan.Blocks = blockSize, blockCount
			}

			if !params.Force {
				if _, err := os.Stat(imagePath); err == nil {
					return cli.Conflict("%s already exists (use --force to overwrite)", imagePath)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return cli.Internal("%w", err)
				}
			}

			fsys, err := layout.Build(imagePath, plan, filepath.Dir(layoutPath), chainfs.WithLogger(s.logger))
			if err != nil {
				return cli.FromEngine(err)
			}
			info := fsys.Info()
			if err := fsys.Close(); err != nil {
				return cli.FromEngine(err)
			}
			fmt.Fprintf(cli.Stdout, "built %s: %d entries, %d of %d blocks free\n",
				imagePath, len(plan.Entries), info.FreeBlocks, info.TotalBlocks)
			return nil
		},
	}
}
