// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/codec"
	"github.com/bureau-foundation/chainfs/lib/manifest"
)

func manifestCommand() *cli.Command {
	return &cli.Command{
		Name:    "manifest",
		Summary: "Record and verify container contents",
		Description: `A manifest lists every file and directory in a container with its
size and BLAKE3 digest, plus a digest over the whole tree. Record one
after building a container and verify against it later to detect
changes.`,
		Subcommands: []*cli.Command{
			manifestCreateCommand(),
			manifestVerifyCommand(),
			manifestShowCommand(),
		},
	}
}

type manifestCreateParams struct {
	ImageParams
	Output string `json:"output" flag:"output,o" desc:"write the CBOR manifest here (default: JSON to standard output)"`
}

func manifestCreateCommand() *cli.Command {
	var params manifestCreateParams

	return &cli.Command{
		Name:    "create",
		Summary: "Write a manifest of the container",
		Usage:   "chainfs manifest create -i <image> [-o manifest.cbor]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("create", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			return params.withImage(func(fsys *chainfs.FS, s *session) error {
				m, err := manifest.Build(fsys)
				if err != nil {
					return err
				}
				if params.Output == "" {
					return cli.WriteJSON(m)
				}
				if err := manifest.WriteFile(params.Output, m); err != nil {
					return err
				}
				s.logger.Info("wrote manifest", "path", params.Output, "entries", len(m.Entries), "tree", m.Tree)
				fmt.Fprintf(cli.Stdout, "%s  %d entries\n", m.Tree, len(m.Entries))
				return nil
			})
		},
	}
}

type manifestVerifyParams struct {
	ImageParams
	cli.JSONOutput
}

func manifestVerifyCommand() *cli.Command {
	var params manifestVerifyParams

	return &cli.Command{
		Name:    "verify",
		Summary: "Compare the container with a manifest",
		Description: `Compare the container's current contents with a manifest written by
"chainfs manifest create -o". Exits 1 when anything is missing, extra,
or changed.`,
		Usage: "chainfs manifest verify -i <image> [--json] <manifest.cbor>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("verify", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("expected one manifest file, got %d arguments", len(args))
			}
			expected, err := manifest.ReadFile(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}

			var report *manifest.Report
			err = params.withImage(func(fsys *chainfs.FS, _ *session) error {
				var err error
				report, err = manifest.Verify(fsys, expected)
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
				for _, name := range report.Missing {
					fmt.Fprintf(cli.Stdout, "missing  %s\n", name)
				}
				for _, name := range report.Extra {
					fmt.Fprintf(cli.Stdout, "extra    %s\n", name)
				}
				for _, change := range report.Changed {
					fmt.Fprintf(cli.Stdout, "changed  %s\n", change.Path)
				}
				fmt.Fprintln(cli.Stdout, report.String())
			}
			if !report.Clean() {
				fmt.Fprintf(os.Stderr, "container differs from %s\n", args[0])
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

type manifestShowParams struct {
	Diagnostic bool `json:"diagnostic" flag:"diag" desc:"print CBOR diagnostic notation instead of JSON"`
}

func manifestShowCommand() *cli.Command {
	var params manifestShowParams

	return &cli.Command{
		Name:    "show",
		Summary: "Print a manifest file",
		Usage:   "chainfs manifest show [--diag] <manifest.cbor>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("expected one manifest file, got %d arguments", len(args))
			}
			if params.Diagnostic {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return cli.Validation("%w", err)
				}
				text, err := codec.Diagnose(data)
				if err != nil {
					return cli.Validation("%s: %w", args[0], err)
				}
				fmt.Fprintln(cli.Stdout, text)
				return nil
			}
			m, err := manifest.ReadFile(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}
			return cli.WriteJSON(m)
		},
	}
}
