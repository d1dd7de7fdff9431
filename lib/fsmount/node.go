// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fsmount

import (
	"context"
	"path"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

// node is a directory or file, addressed by its container path.
type node struct {
	gofuse.Inode
	state *state
	path  string

	// file is the engine handle shared by every open descriptor;
	// opens counts them. Both are guarded by state.mu.
	file    *chainfs.File
	opens   int
	removed bool
}

var (
	_ gofuse.InodeEmbedder  = (*node)(nil)
	_ gofuse.NodeLookuper   = (*node)(nil)
	_ gofuse.NodeGetattrer  = (*node)(nil)
	_ gofuse.NodeSetattrer  = (*node)(nil)
	_ gofuse.NodeReaddirer  = (*node)(nil)
	_ gofuse.NodeMkdirer    = (*node)(nil)
	_ gofuse.NodeRmdirer    = (*node)(nil)
	_ gofuse.NodeUnlinker   = (*node)(nil)
	_ gofuse.NodeCreater    = (*node)(nil)
	_ gofuse.NodeOpener     = (*node)(nil)
	_ gofuse.NodeRenamer    = (*node)(nil)
	_ gofuse.NodeStatfser   = (*node)(nil)
)

func (n *node) child(name string) string {
	return path.Join(n.path, name)
}

func (n *node) newChild(ctx context.Context, name string, info *chainfs.FileInfo) *gofuse.Inode {
	return n.NewInode(ctx, &node{state: n.state, path: n.child(name)}, stableAttr(info))
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	n.state.mu.Lock()
	defer n.state.mu.Unlock()

	childPath := n.child(name)
	info, err := n.state.fs.Stat(childPath)
	if err != nil {
		return nil, n.state.fail("lookup", childPath, err)
	}
	n.state.fillAttr(info, &out.Attr)
	return n.newChild(ctx, name, info), 0
}

// stat returns the node's metadata, preferring the open handle.
// Callers hold state.mu.
func (n *node) stat() (*chainfs.FileInfo, error) {
	if n.removed {
		return nil, chainfs.ErrNotFound
	}
	if n.file != nil {
		return n.file.Stat(), nil
	}
	return n.state.fs.Stat(n.path)
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	n.state.mu.Lock()
	defer n.state.mu.Unlock()

	info, err := n.stat()
	if err != nil {
		return n.state.fail("getattr", n.path, err)
	}
	n.state.fillAttr(info, &out.Attr)
	return 0
}

// Setattr handles truncation. Mode, owner, and time changes are
// accepted and ignored.
func (n *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	n.state.mu.Lock()
	defer n.state.mu.Unlock()

	if size, ok := in.GetSize(); ok {
		if errno := n.truncate(int64(size)); errno != 0 {
			return errno
		}
	}
	info, err := n.stat()
	if err != nil {
		return n.state.fail("setattr", n.path, err)
	}
	n.state.fillAttr(info, &out.Attr)
	return 0
}

func (n *node) truncate(size int64) syscall.Errno {
	if n.removed {
		return syscall.ENOENT
	}
	file := n.file
	if file == nil {
		opened, err := n.state.fs.OpenFile(n.path, 0)
		if err != nil {
			return n.state.fail("truncate", n.path, err)
		}
		defer opened.Close()
		file = opened
	}
	if err := resize(file, size); err != nil {
		return n.state.fail("truncate", n.path, err)
	}
	return 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	n.state.mu.Lock()
	defer n.state.mu.Unlock()

	infos, err := n.state.fs.ReadDir(n.path)
	if err != nil {
		return nil, n.state.fail("readdir", n.path, err)
	}
	entries := make([]fuse.DirEntry, 0, len(infos))
	for _, info := range infos {
		mode := uint32(syscall.S_IFREG)
		if info.IsDir() {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: info.Name, Mode: mode})
	}
	return gofuse.NewListDirStream(entries), 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	n.state.mu.Lock()
	defer n.state.mu.Unlock()

	childPath := n.child(name)
	if err := n.state.fs.Mkdir(childPath); err != nil {
		return nil, n.state.fail("mkdir", childPath, err)
	}
	info, err := n.state.fs.Stat(childPath)
	if err != nil {
		return nil, n.state.fail("mkdir", childPath, err)
	}
	n.state.fillAttr(info, &out.Attr)
	return n.newChild(ctx, name, info), 0
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	n.state.mu.Lock()
	defer n.state.mu.Unlock()

	childPath := n.child(name)
	if err := n.state.fs.Rmdir(childPath); err != nil {
		return n.state.fail("rmdir", childPath, err)
	}
	return 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	n.state.mu.Lock()
	defer n.state.mu.Unlock()

	childPath := n.child(name)
	if inode := n.GetChild(name); inode != nil {
		if child, ok := inode.Operations().(*node); ok && child.file != nil {
			err := child.file.Remove()
			child.file = nil
			child.removed = true
			if err != nil {
				return n.state.fail("unlink", childPath, err)
			}
			return 0
		}
	}
	if err := n.state.fs.Remove(childPath); err != nil {
		return n.state.fail("unlink", childPath, err)
	}
	return 0
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	n.state.mu.Lock()
	defer n.state.mu.Unlock()

	childPath := n.child(name)
	openFlag := chainfs.Create
	if flags&syscall.O_TRUNC != 0 {
		openFlag |= chainfs.Truncate
	}
	file, err := n.state.fs.OpenFile(childPath, openFlag)
	if err != nil {
		return nil, nil, 0, n.state.fail("create", childPath, err)
	}

	info := file.Stat()
	child := &node{state: n.state, path: childPath, file: file, opens: 1}
	inode := n.NewInode(ctx, child, stableAttr(info))
	n.state.fillAttr(info, &out.Attr)
	return inode, &handle{node: child}, 0, 0
}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	n.state.mu.Lock()
	defer n.state.mu.Unlock()

	if n.removed {
		return nil, 0, syscall.ENOENT
	}
	if n.file == nil {
		file, err := n.state.fs.OpenFile(n.path, 0)
		if err != nil {
			return nil, 0, n.state.fail("open", n.path, err)
		}
		n.file = file
	}
	n.opens++

	if flags&syscall.O_TRUNC != 0 {
		if err := resize(n.file, 0); err != nil {
			n.release()
			return nil, 0, n.state.fail("open", n.path, err)
		}
	}
	return &handle{node: n}, 0, 0
}

// release drops one reference to the shared engine handle. Callers
// hold state.mu.
func (n *node) release() {
	n.opens--
	if n.opens == 0 && n.file != nil {
		n.file.Close()
		n.file = nil
	}
}

// Rename is not supported by the container format.
func (n *node) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	return syscall.ENOTSUP
}

func (n *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	n.state.mu.Lock()
	defer n.state.mu.Unlock()

	info := n.state.fs.Info()
	out.Bsize = uint32(info.BlockSize)
	out.Frsize = uint32(info.BlockSize)
	out.Blocks = uint64(info.TotalBlocks)
	out.Bfree = uint64(info.FreeBlocks)
	out.Bavail = uint64(info.FreeBlocks)
	out.NameLen = chainfs.MaxNameLength
	return 0
}
