// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fsmount

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// It is created if it does not exist.
	Mountpoint string

	// FS is the container to serve. The caller keeps ownership and
	// closes it after unmounting.
	FS *chainfs.FS

	// FSName appears as the source in the mount table. Default:
	// chainfs.
	FSName string

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Debug logs every FUSE request to stderr.
	Debug bool

	// Logger receives diagnostic messages. If nil, errors go to
	// stderr.
	Logger *slog.Logger
}

// state is shared by every node of one mount.
type state struct {
	mu     sync.Mutex
	fs     *chainfs.FS
	logger *slog.Logger

	uid, gid uint32
}

// Mount serves options.FS at options.Mountpoint. The caller must call
// Unmount on the returned server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.FS == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	if options.FSName == "" {
		options.FSName = "chainfs"
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	shared := &state{
		fs:     options.FS,
		logger: options.Logger,
		uid:    uint32(os.Getuid()),
		gid:    uint32(os.Getgid()),
	}
	root := &node{state: shared, path: "/"}

	// Only this process changes the container, so the kernel may
	// cache briefly.
	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     options.FSName,
			Name:       "chainfs",
			AllowOther: options.AllowOther,
			Debug:      options.Debug,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("container mounted", "mountpoint", options.Mountpoint)
	return server, nil
}

// fail logs unexpected engine errors and converts err to an errno.
func (s *state) fail(op, path string, err error) syscall.Errno {
	code := errno(err)
	if code == syscall.EIO {
		s.logger.Error("container operation failed", "op", op, "path", path, "error", err)
	}
	return code
}

func (s *state) fillAttr(info *chainfs.FileInfo, out *fuse.Attr) {
	blockSize := s.fs.BlockSize()
	switch {
	case info.IsDir():
		out.Mode = syscall.S_IFDIR | 0o755
		out.Nlink = 2
	case info.IsReadOnly():
		out.Mode = syscall.S_IFREG | 0o444
		out.Nlink = 1
	default:
		out.Mode = syscall.S_IFREG | 0o644
		out.Nlink = 1
	}
	out.Size = uint64(info.Size)
	out.Blocks = (out.Size + 511) / 512
	out.Blksize = uint32(blockSize)
	out.Uid = s.uid
	out.Gid = s.gid
}

func stableAttr(info *chainfs.FileInfo) gofuse.StableAttr {
	if info.IsDir() {
		return gofuse.StableAttr{Mode: syscall.S_IFDIR}
	}
	return gofuse.StableAttr{Mode: syscall.S_IFREG}
}
