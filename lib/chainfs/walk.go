// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainfs

import (
	"errors"
	"io/fs"
	"path"
)

// WalkFunc is called by [FS.Walk] for every entry. Returning
// fs.SkipDir from a call for a directory skips its contents; returning
// fs.SkipAll stops the walk without error.
type WalkFunc func(name string, info *FileInfo) error

// Walk visits root and everything below it in directory order,
// parents before children. Names passed to fn are absolute and
// cleaned ("/", "/docs", "/docs/readme").
//
// Each directory is read completely before fn is called for its
// entries, so fn may modify the tree; changes below the directory
// being visited are seen, changes to it are not.
func (f *FS) Walk(root string, fn WalkFunc) error {
	info, err := f.Stat(root)
	if err != nil {
		return err
	}
	err = f.walk(path.Join("/", root), info, fn)
	if errors.Is(err, fs.SkipDir) || errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func (f *FS) walk(name string, info *FileInfo, fn WalkFunc) error {
	if err := fn(name, info); err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := f.ReadDir(name)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		err := f.walk(path.Join(name, entry.Name), entry, fn)
		if errors.Is(err, fs.SkipDir) && entry.IsDir() {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
