// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io/fs"
	"path"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

type lsParams struct {
	ImageParams
	cli.JSONOutput
	Recursive bool `json:"recursive" flag:"recursive,R" desc:"list subdirectories too"`
	Human     bool `json:"human"     flag:"human,H"     desc:"print sizes in KiB, MiB"`
}

// listing is one row of ls output.
type listing struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	Dir        bool   `json:"dir"`
	ReadOnly   bool   `json:"read_only,omitempty"`
	Size       uint32 `json:"size"`
	FirstBlock int    `json:"first_block"`
}

func lsCommand() *cli.Command {
	var params lsParams

	return &cli.Command{
		Name:    "ls",
		Summary: "List a directory",
		Description: `List the entries of a container directory (default /). Directory
sizes are the size recorded in the directory's header, which is
one block for an empty directory.`,
		Usage: "chainfs ls -i <image> [-R] [--json] [path]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("ls", &params)
		},
		Examples: []cli.Example{
			{
				Description: "List everything in the container",
				Command:     "chainfs ls -i disk.img -R",
			},
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return cli.Validation("expected at most one path, got %d", len(args))
			}
			dir := "/"
			if len(args) == 1 {
				dir = args[0]
			}
			return params.withImage(func(fsys *chainfs.FS, _ *session) error {
				rows, err := list(fsys, dir, params.Recursive)
				if err != nil {
					return err
				}
				if done, err := params.EmitJSON(rows); done {
					return err
				}

				tw := tabwriter.NewWriter(cli.Stdout, 2, 0, 2, ' ', tabwriter.AlignRight)
				for _, row := range rows {
					kind, name := "-", row.Name
					if params.Recursive {
						name = row.Path
					}
					if row.Dir {
						kind, name = "d", name+"/"
					}
					if row.ReadOnly {
						kind += "r"
					}
					size := fmt.Sprint(row.Size)
					if params.Human {
						size = humanize.IBytes(uint64(row.Size))
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t %s\t\n", kind, size, row.FirstBlock, name)
				}
				return tw.Flush()
			})
		},
	}
}

func list(fsys *chainfs.FS, dir string, recursive bool) ([]listing, error) {
	dir = path.Clean("/" + dir)
	info, err := fsys.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []listing{toListing(dir, info)}, nil
	}

	var rows []listing
	err = fsys.Walk(dir, func(name string, info *chainfs.FileInfo) error {
		if name == dir {
			return nil
		}
		rows = append(rows, toListing(name, info))
		if info.IsDir() && !recursive {
			return fs.SkipDir
		}
		return nil
	})
	return rows, err
}

func toListing(name string, info *chainfs.FileInfo) listing {
	return listing{
		Path:       name,
		Name:       info.Name,
		Dir:        info.IsDir(),
		ReadOnly:   info.IsReadOnly(),
		Size:       info.Size,
		FirstBlock: int(info.FirstBlock),
	}
}
