// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/layout"
)

type extractParams struct {
	ImageParams
	Flat bool `json:"flat" flag:"flat" desc:"copy only the files directly inside the source directory"`
}

func extractCommand() *cli.Command {
	var params extractParams

	return &cli.Command{
		Name:    "extract",
		Summary: "Copy a container directory tree to the host",
		Usage:   "chainfs extract -i <image> [--flat] [container-dir] <host-dir>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("extract", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Extract the whole container",
				Command:     "chainfs extract -i disk.img ./out",
			},
			{
				Description: "Extract only the files in /docs",
				Command:     "chainfs extract -i disk.img --flat /docs ./docs",
			},
		},
		Run: func(args []string) error {
			src, dest := "/", ""
			switch len(args) {
			case 1:
				dest = args[0]
			case 2:
				src, dest = args[0], args[1]
			default:
				return cli.Validation("expected [container-dir] <host-dir>, got %d arguments", len(args))
			}
			return params.withImage(func(fsys *chainfs.FS, s *session) error {
				files, err := layout.Extract(fsys, src, dest, layout.ExtractOptions{Flat: params.Flat})
				if err != nil {
					return err
				}
				s.logger.Debug("extracted container tree", "source", src, "destination", dest, "files", files)
				fmt.Fprintf(cli.Stdout, "extracted %d files to %s\n", files, dest)
				return nil
			})
		},
	}
}
