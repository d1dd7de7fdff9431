// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/fsmount"
)

type mountParams struct {
	ImageParams
	FSName     string `json:"fs_name"     flag:"fs-name"     desc:"source name shown in the mount table (default: config, then chainfs)"`
	AllowOther bool   `json:"allow_other" flag:"allow-other" desc:"let other users access the mount"`
	Debug      bool   `json:"debug"       flag:"debug"       desc:"log every FUSE request"`
}

func mountCommand() *cli.Command {
	var params mountParams

	return &cli.Command{
		Name:    "mount",
		Summary: "Serve the container as a FUSE filesystem",
		Description: `Mount the container at a directory and serve it until interrupted.
On SIGINT or SIGTERM the filesystem is unmounted and the allocation
table is flushed to the image. Rename is not supported.`,
		Usage: "chainfs mount -i <image> [--allow-other] [--debug] <mountpoint>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("mount", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("expected one mountpoint, got %d arguments", len(args))
			}
			mountpoint := args[0]

			return params.withImage(func(fsys *chainfs.FS, s *session) error {
				options := fsmount.Options{
					Mountpoint: mountpoint,
					FS:         fsys,
					FSName:     s.config.Mount.FSName,
					AllowOther: params.AllowOther || s.config.Mount.AllowOther,
					Debug:      params.Debug || s.config.Mount.Debug,
					Logger:     s.logger,
				}
				if params.FSName != "" {
					options.FSName = params.FSName
				}

				server, err := fsmount.Mount(options)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "serving %s at %s (Ctrl-C to unmount)\n", s.imagePath, mountpoint)

				ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				done := make(chan struct{})
				go func() {
					server.Wait()
					close(done)
				}()

				select {
				case <-ctx.Done():
					s.logger.Info("unmounting", "mountpoint", mountpoint)
					if err := server.Unmount(); err != nil {
						return fmt.Errorf("unmounting %s: %w", mountpoint, err)
					}
					<-done
				case <-done:
					// Unmounted externally (fusermount -u).
				}
				return nil
			})
		},
	}
}
