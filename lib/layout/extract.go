// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

// ExtractOptions controls Extract.
type ExtractOptions struct {
	// Flat copies only the files directly inside the source
	// directory and skips subdirectories.
	Flat bool
}

// Extract copies the container tree at src into the host directory
// dest, creating dest if needed. Existing host files are overwritten.
// It returns the number of files written.
//
// Entry names come from the container and are not trusted: a name
// that would land outside dest is an error.
func Extract(fsys *chainfs.FS, src, dest string, opts ExtractOptions) (int, error) {
	src = path.Clean("/" + src)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, err
	}

	files := 0
	err := fsys.Walk(src, func(name string, info *chainfs.FileInfo) error {
		if name == src {
			if !info.IsDir() {
				return &chainfs.PathError{Op: "extract", Path: src, Err: chainfs.ErrNotDirectory}
			}
			return nil
		}
		relative, err := filepath.Rel(src, name)
		if err != nil || relative == "." || !filepath.IsLocal(relative) {
			return fmt.Errorf("container entry %q escapes the destination", name)
		}
		target := filepath.Join(dest, relative)

		if info.IsDir() {
			if opts.Flat {
				return fs.SkipDir
			}
			return os.MkdirAll(target, 0o755)
		}
		if err := CopyOut(fsys, name, target); err != nil {
			return err
		}
		files++
		return nil
	})
	return files, err
}

// CopyOut copies the container file name to the host path target.
func CopyOut(fsys *chainfs.FS, name, target string) error {
	file, err := fsys.OpenFile(name, 0)
	if err != nil {
		return err
	}
	defer file.Close()

	output, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(output, file); err != nil {
		output.Close()
		return fmt.Errorf("copying %s to %s: %w", name, target, err)
	}
	return output.Close()
}
