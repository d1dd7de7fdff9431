// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

type checkParams struct {
	ImageParams
	cli.JSONOutput
}

func checkCommand() *cli.Command {
	var params checkParams

	return &cli.Command{
		Name:    "check",
		Summary: "Check container consistency",
		Description: `Walk every chain in the container and cross-check the allocation
table, the free list, and the superblock's free counter. Exits 1 when
problems are found. The container is not modified.`,
		Usage: "chainfs check -i <image> [--json]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("check", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			var report *chainfs.CheckReport
			err := params.withImage(func(fsys *chainfs.FS, _ *session) error {
				var err error
				report, err = fsys.Check()
				return err
			})
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(report); done {
				if err != nil {
					return err
				}
			} else {
				printCheckReport(report)
			}
			if !report.OK() {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func printCheckReport(report *chainfs.CheckReport) {
	fmt.Fprintf(cli.Stdout, "%d files, %d directories, %d of %d blocks used, %d free\n",
		report.Files, report.Directories, report.UsedBlocks, report.TotalBlocks, report.FreeListLength)
	if report.OK() {
		fmt.Fprintln(cli.Stdout, "no problems found")
		return
	}
	for _, problem := range report.Problems {
		fmt.Fprintf(os.Stderr, "problem: %s\n", problem)
	}
	fmt.Fprintf(cli.Stdout, "%d problems found\n", len(report.Problems))
}
