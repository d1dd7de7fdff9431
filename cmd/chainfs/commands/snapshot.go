// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/snapshot"
)

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:    "snapshot",
		Summary: "Save and restore compressed, optionally encrypted container copies",
		Description: `A snapshot is a self-checking copy of a whole container: a small
header recording geometry and a BLAKE3 digest, followed by the
container bytes compressed with zstd or lz4 and optionally encrypted
to age X25519 recipients.`,
		Subcommands: []*cli.Command{
			snapshotSaveCommand(),
			snapshotRestoreCommand(),
			snapshotShowCommand(),
		},
	}
}

type snapshotSaveParams struct {
	ImageParams
	Compression string   `json:"compression" flag:"compression,c" desc:"none, lz4, or zstd (default: config, then zstd)"`
	Recipients  []string `json:"recipients"  flag:"recipient,r"   desc:"encrypt to this age public key (repeatable)"`
}

func snapshotSaveCommand() *cli.Command {
	var params snapshotSaveParams

	return &cli.Command{
		Name:    "save",
		Summary: "Write a snapshot of the container",
		Usage:   "chainfs snapshot save -i <image> [-c zstd] [-r age1...] <snapshot|->",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("save", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Save an encrypted snapshot",
				Command:     "chainfs snapshot save -i disk.img -r age1ql3z7hjy54pw3hyww5ayyfg7zqgvc7w3j2elw8zmrj2kg5sfn9aqmcac8p disk.snap",
			},
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("expected one output path, got %d arguments", len(args))
			}
			output := args[0]
			return params.withImage(func(fsys *chainfs.FS, s *session) error {
				options, err := params.saveOptions(s)
				if err != nil {
					return err
				}
				header, err := saveSnapshot(fsys, output, options)
				if err != nil {
					return err
				}
				if output != "-" {
					fmt.Fprintf(cli.Stdout, "saved %s: %s container, %s compression, digest %s\n",
						output, humanize.IBytes(uint64(header.Length)), header.Compression, header.Digest)
				}
				return nil
			})
		},
	}
}

func (p *snapshotSaveParams) saveOptions(s *session) ([]snapshot.Option, error) {
	name := p.Compression
	if name == "" {
		name = s.config.Snapshot.Compression
	}
	options := []snapshot.Option{snapshot.WithLogger(s.logger)}
	if name != "" {
		compression, err := snapshot.ParseCompression(name)
		if err != nil {
			return nil, cli.Validation("%w", err)
		}
		options = append(options, snapshot.WithCompression(compression))
	}

	keys := p.Recipients
	if len(keys) == 0 {
		keys = s.config.Snapshot.Recipients
	}
	if len(keys) > 0 {
		recipients, err := snapshot.ParseRecipients(keys)
		if err != nil {
			return nil, cli.Validation("%w", err)
		}
		options = append(options, snapshot.WithRecipients(recipients...))
	}
	return options, nil
}

func saveSnapshot(fsys *chainfs.FS, output string, options []snapshot.Option) (*snapshot.Header, error) {
	if output == "-" {
		return snapshot.Save(cli.Stdout, fsys, options...)
	}
	file, err := os.Create(output)
	if err != nil {
		return nil, err
	}
	header, err := snapshot.Save(file, fsys, options...)
	if err != nil {
		file.Close()
		os.Remove(output)
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, err
	}
	return header, nil
}

type snapshotRestoreParams struct {
	ImageParams
	IdentityFile string `json:"identity_file" flag:"identity-file" desc:"age identity file for encrypted snapshots (default: config)"`
	Force        bool   `json:"force"         flag:"force,f"       desc:"overwrite an existing image"`
}

func snapshotRestoreCommand() *cli.Command {
	var params snapshotRestoreParams

	return &cli.Command{
		Name:    "restore",
		Summary: "Recreate a container from a snapshot",
		Description: `Write the container held in a snapshot to --image. The container's
length and digest are checked before it is mounted; a snapshot that
fails the check leaves a partial image behind, which is removed.`,
		Usage: "chainfs snapshot restore -i <image> [--identity-file key.txt] [--force] <snapshot|->",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("restore", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("expected one snapshot path, got %d arguments", len(args))
			}
			s, err := params.setup()
			if err != nil {
				return err
			}
			imagePath, err := s.requireImage()
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

			options := []snapshot.Option{snapshot.WithLogger(s.logger)}
			identityFile := params.IdentityFile
			if identityFile == "" {
				identityFile = s.config.Snapshot.IdentityFile
			}
			if identityFile != "" {
				identities, err := snapshot.ReadIdentityFile(identityFile)
				if err != nil {
					return cli.Validation("%w", err)
				}
				options = append(options, snapshot.WithIdentities(identities...))
			}

			input, closeInput, err := openInput(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}
			defer closeInput()

			fsys, header, err := snapshot.RestoreFile(input, imagePath, options, chainfs.WithLogger(s.logger))
			if err != nil {
				os.Remove(imagePath)
				if errors.Is(err, snapshot.ErrCorrupt) {
					return cli.Validation("%w", err)
				}
				return cli.FromEngine(err)
			}
			if err := fsys.Close(); err != nil {
				return cli.FromEngine(err)
			}
			fmt.Fprintf(cli.Stdout, "restored %s: %d blocks of %d bytes, digest %s\n",
				imagePath, header.TotalBlocks, header.BlockSize, header.Digest)
			return nil
		},
	}
}

type snapshotShowParams struct {
	cli.JSONOutput
}

func snapshotShowCommand() *cli.Command {
	var params snapshotShowParams

	return &cli.Command{
		Name:    "show",
		Summary: "Print a snapshot's header",
		Usage:   "chainfs snapshot show [--json] <snapshot|->",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("expected one snapshot path, got %d arguments", len(args))
			}
			input, closeInput, err := openInput(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}
			defer closeInput()

			header, err := snapshot.ReadHeader(input)
			if err != nil {
				return cli.Validation("%s: %w", args[0], err)
			}
			if done, err := params.EmitJSON(header); done {
				return err
			}

			tw := tabwriter.NewWriter(cli.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(tw, "version\t%d\n", header.Version)
			fmt.Fprintf(tw, "created\t%s\n", header.Created.Format(time.RFC3339))
			fmt.Fprintf(tw, "compression\t%s\n", header.Compression)
			fmt.Fprintf(tw, "encrypted\t%t\n", header.Encrypted)
			fmt.Fprintf(tw, "geometry\t%d blocks of %d bytes\n", header.TotalBlocks, header.BlockSize)
			fmt.Fprintf(tw, "free\t%d blocks\n", header.FreeBlocks)
			fmt.Fprintf(tw, "length\t%s\n", humanize.IBytes(uint64(header.Length)))
			fmt.Fprintf(tw, "digest\t%s\n", header.Digest)
			return tw.Flush()
		},
	}
}

// openInput opens name for reading; "-" is standard input.
func openInput(name string) (io.Reader, func(), error) {
	if name == "-" {
		return stdin, func() {}, nil
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}
