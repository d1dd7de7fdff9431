// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/config"
)

type createParams struct {
	ImageParams
	cli.JSONOutput
	Size      string `json:"size"       flag:"size,s"     desc:"capacity such as 16MiB (block size derived)"`
	BlockSize int    `json:"block_size" flag:"block-size" desc:"block size in bytes (with --blocks)"`
	Blocks    int    `json:"blocks"     flag:"blocks"     desc:"number of blocks (with --block-size)"`
	Force     bool   `json:"force"      flag:"force,f"    desc:"overwrite an existing image"`
}

func createCommand() *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "Create and format a container image",
		Description: `Create a new container file and format it with an empty root
directory. The geometry comes from --size, or from --block-size and
--blocks together, or from the create section of the config file.

With --size the block size starts at 512 bytes and doubles until the
block count fits in 16 bits.`,
		Usage: "chainfs create -i <image> [--size <size> | --block-size <n> --blocks <n>]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("create", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Create a 16 MiB container",
				Command:     "chainfs create -i disk.img --size 16MiB",
			},
			{
				Description: "Create a container of exactly 2048 blocks of 512 bytes",
				Command:     "chainfs create -i disk.img --block-size 512 --blocks 2048",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			s, err := params.setup()
			if err != nil {
				return err
			}
			imagePath, err := s.requireImage()
			if err != nil {
				return err
			}
			blockSize, blockCount, err := createGeometry(params.Size, params.BlockSize, params.Blocks, s.config)
			if err != nil {
				return err
			}

			if !params.Force {
				if _, err := os.Stat(imagePath); err == nil {
					return cli.Conflict("%s already exists (use --force to overwrite)", imagePath)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return cli.Internal("%w", err)
				}
			}

			fsys, err := chainfs.CreateExact(imagePath, blockSize, blockCount, chainfs.WithLogger(s.logger))
			if err != nil {
				return cli.FromEngine(err)
			}
			info := fsys.Info()
			if err := fsys.Close(); err != nil {
				return cli.FromEngine(err)
			}

			if done, err := params.EmitJSON(info); done {
				return err
			}
			fmt.Fprintf(cli.Stdout, "created %s: %d blocks of %d bytes (%s), %d free\n",
				imagePath, info.TotalBlocks, info.BlockSize,
				humanize.IBytes(uint64(info.TotalBlocks)*uint64(info.BlockSize)), info.FreeBlocks)
			return nil
		},
	}
}

// createGeometry resolves the container geometry from flags, falling
// back to the config file.
func createGeometry(size string, blockSize, blocks int, cfg *config.Config) (int, int, error) {
	explicit := blockSize != 0 || blocks != 0
	switch {
	case size != "" && explicit:
		return 0, 0, cli.Validation("--size cannot be combined with --block-size or --blocks")
	case size != "":
		bytes, err := humanize.ParseBytes(size)
		if err != nil {
			return 0, 0, cli.Validation("--size: %w", err)
		}
		return chooseGeometry(int64(bytes))
	case explicit:
		if blockSize == 0 || blocks == 0 {
			return 0, 0, cli.Validation("--block-size and --blocks must be given together")
		}
		if err := chainfs.ValidateGeometry(blockSize, blocks); err != nil {
			return 0, 0, cli.FromEngine(err)
		}
		return blockSize, blocks, nil
	}

	configured, err := cfg.CreateSize()
	if err != nil {
		return 0, 0, cli.Validation("%w", err)
	}
	if configured > 0 {
		return chooseGeometry(configured)
	}
	if cfg.Create.BlockSize != 0 && cfg.Create.Blocks != 0 {
		if err := chainfs.ValidateGeometry(cfg.Create.BlockSize, cfg.Create.Blocks); err != nil {
			return 0, 0, cli.FromEngine(err)
		}
		return cfg.Create.BlockSize, cfg.Create.Blocks, nil
	}
	return 0, 0, cli.Validation("no geometry: pass --size, or --block-size and --blocks, or set create in the config file")
}

func chooseGeometry(size int64) (int, int, error) {
	blockSize, blockCount, err := chainfs.ChooseGeometry(size)
	if err != nil {
		return 0, 0, cli.FromEngine(err)
	}
	if err := chainfs.ValidateGeometry(blockSize, blockCount); err != nil {
		return 0, 0, cli.FromEngine(err)
	}
	return blockSize, blockCount, nil
}
