// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/layout"
)

type mkdirParams struct {
	ImageParams
	Parents bool `json:"parents" flag:"parents,p" desc:"create missing parents; an existing directory is not an error"`
}

func mkdirCommand() *cli.Command {
	var params mkdirParams

	return &cli.Command{
		Name:    "mkdir",
		Summary: "Create directories",
		Usage:   "chainfs mkdir -i <image> [-p] <path>...",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("mkdir", &params)
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return cli.Validation("at least one path is required")
			}
			return params.withImage(func(fsys *chainfs.FS, _ *session) error {
				for _, dir := range args {
					var err error
					if params.Parents {
						err = layout.MkdirAll(fsys, dir)
					} else {
						err = fsys.Mkdir(dir)
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

type rmdirParams struct {
	ImageParams
}

func rmdirCommand() *cli.Command {
	var params rmdirParams

	return &cli.Command{
		Name:    "rmdir",
		Summary: "Remove empty directories",
		Usage:   "chainfs rmdir -i <image> <path>...",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("rmdir", &params)
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return cli.Validation("at least one path is required")
			}
			return params.withImage(func(fsys *chainfs.FS, _ *session) error {
				for _, dir := range args {
					if err := fsys.Rmdir(dir); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
