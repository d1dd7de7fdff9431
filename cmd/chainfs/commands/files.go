// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/layout"
)

// stdin is read by "put -". Tests replace it.
var stdin io.Reader = os.Stdin

type putParams struct {
	ImageParams
	Parents bool `json:"parents" flag:"parents,p" desc:"create missing parent directories"`
}

func putCommand() *cli.Command {
	var params putParams

	return &cli.Command{
		Name:    "put",
		Summary: "Copy a host file into the container",
		Description: `Copy a host file (or standard input, given "-") into the container.
An existing container file is overwritten. When the target is an
existing directory or ends in "/", the host file's base name is used
inside it.`,
		Usage: "chainfs put -i <image> [-p] <host-file|-> <path>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("put", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Copy a file into /docs",
				Command:     "chainfs put -i disk.img -p notes.txt /docs/",
			},
			{
				Description: "Store command output",
				Command:     "date | chainfs put -i disk.img - /stamp",
			},
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return cli.Validation("expected <host-file|-> <path>, got %d arguments", len(args))
			}
			source, target := args[0], args[1]
			return params.withImage(func(fsys *chainfs.FS, _ *session) error {
				target, err := putTarget(fsys, source, target)
				if err != nil {
					return err
				}
				if params.Parents {
					if err := layout.MkdirAll(fsys, path.Dir(target)); err != nil {
						return err
					}
				}
				if source == "-" {
					return copyReader(fsys, stdin, target)
				}
				return layout.CopyIn(fsys, source, target)
			})
		},
	}
}

// putTarget resolves a directory target to a file inside it.
func putTarget(fsys *chainfs.FS, source, target string) (string, error) {
	intoDir := strings.HasSuffix(target, "/")
	target = path.Clean("/" + target)
	if !intoDir {
		info, err := fsys.Stat(target)
		switch {
		case err == nil:
			intoDir = info.IsDir()
		case !errors.Is(err, chainfs.ErrNotFound):
			return "", err
		}
	}
	if !intoDir {
		return target, nil
	}
	if source == "-" {
		return "", cli.Validation("standard input needs a file name, not directory %s", target)
	}
	return path.Join(target, filepath.Base(source)), nil
}

func copyReader(fsys *chainfs.FS, r io.Reader, name string) error {
	file, err := fsys.OpenFile(name, chainfs.Create|chainfs.Truncate)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

type getParams struct {
	ImageParams
}

func getCommand() *cli.Command {
	var params getParams

	return &cli.Command{
		Name:    "get",
		Summary: "Copy a container file to the host",
		Usage:   "chainfs get -i <image> <path> [host-file]",
		Description: `Copy a container file to the host. Without a host path the file
is written to the current directory under its container name.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("get", &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return cli.Validation("expected <path> [host-file], got %d arguments", len(args))
			}
			name := args[0]
			target := path.Base(path.Clean("/" + name))
			if len(args) == 2 {
				target = args[1]
			}
			if target == "/" {
				return cli.Validation("%s is not a file", name)
			}
			return params.withImage(func(fsys *chainfs.FS, _ *session) error {
				return layout.CopyOut(fsys, name, target)
			})
		},
	}
}

type catParams struct {
	ImageParams
}

func catCommand() *cli.Command {
	var params catParams

	return &cli.Command{
		Name:    "cat",
		Summary: "Write container files to standard output",
		Usage:   "chainfs cat -i <image> <path>...",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("cat", &params)
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return cli.Validation("at least one path is required")
			}
			return params.withImage(func(fsys *chainfs.FS, _ *session) error {
				for _, name := range args {
					if err := catFile(fsys, name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func catFile(fsys *chainfs.FS, name string) error {
	file, err := fsys.OpenFile(name, 0)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := io.Copy(cli.Stdout, file); err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	return nil
}

type rmParams struct {
	ImageParams
}

func rmCommand() *cli.Command {
	var params rmParams

	return &cli.Command{
		Name:    "rm",
		Summary: "Remove files",
		Usage:   "chainfs rm -i <image> <path>...",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("rm", &params)
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return cli.Validation("at least one path is required")
			}
			return params.withImage(func(fsys *chainfs.FS, _ *session) error {
				for _, name := range args {
					if err := fsys.Remove(name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
