// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

type infoParams struct {
	ImageParams
	cli.JSONOutput
}

func infoCommand() *cli.Command {
	var params infoParams

	return &cli.Command{
		Name:    "info",
		Summary: "Show container geometry and free space",
		Usage:   "chainfs info -i <image> [--json]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("info", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			return params.withImage(func(fsys *chainfs.FS, s *session) error {
				info := fsys.Info()
				if done, err := params.EmitJSON(info); done {
					return err
				}

				blockSize := uint64(info.BlockSize)
				tw := tabwriter.NewWriter(cli.Stdout, 2, 0, 3, ' ', 0)
				fmt.Fprintf(tw, "image\t%s\n", s.imagePath)
				fmt.Fprintf(tw, "block size\t%d\n", info.BlockSize)
				fmt.Fprintf(tw, "blocks\t%d (%s)\n", info.TotalBlocks, humanize.IBytes(uint64(info.TotalBlocks)*blockSize))
				fmt.Fprintf(tw, "root block\t%d\n", info.RootBlock)
				fmt.Fprintf(tw, "free\t%d (%s)\n", info.FreeBlocks, humanize.IBytes(uint64(info.FreeBlocks)*blockSize))
				return tw.Flush()
			})
		},
	}
}
