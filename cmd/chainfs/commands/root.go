// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import "github.com/bureau-foundation/chainfs/cmd/chainfs/cli"

// Root returns the chainfs command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "chainfs",
		Summary: "Create and edit chainfs container images",
		Description: `chainfs manages single-file container images holding a small
hierarchical filesystem: a superblock, a block allocation table, and
directories and files stored as chains of fixed-size blocks.`,
		Subcommands: []*cli.Command{
			createCommand(),
			infoCommand(),
			lsCommand(),
			mkdirCommand(),
			rmdirCommand(),
			putCommand(),
			getCommand(),
			catCommand(),
			rmCommand(),
			checkCommand(),
			extractCommand(),
			buildCommand(),
			manifestCommand(),
			snapshotCommand(),
			mountCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Create a 16 MiB container and copy a file in",
				Command:     "chainfs create -i disk.img --size 16MiB && chainfs put -i disk.img notes.txt /notes.txt",
			},
			{
				Description: "List the root directory as JSON",
				Command:     "chainfs ls -i disk.img --json /",
			},
		},
	}
}
