// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainfs

import (
	"errors"
	"strings"
)

// splitPath breaks a slash-separated path into its components,
// dropping empty components produced by leading, trailing, or
// repeated separators. The root path yields no components.
func splitPath(path string) []string {
	var components []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			components = append(components, part)
		}
	}
	return components
}

// rootInfo returns the synthetic entry for the root directory.
func (f *FS) rootInfo() *FileInfo {
	return &FileInfo{
		Name:       "/",
		Attrs:      AttrFile | AttrDirectory,
		Size:       uint32(f.blockSize),
		FirstBlock: f.root,
	}
}

// resolve walks components from the root. A parent that cannot be
// found yields ErrNotFound; a parent that is a file yields
// ErrNotDirectory.
func (f *FS) resolve(components []string) (*FileInfo, error) {
	if len(components) == 0 {
		return f.rootInfo(), nil
	}
	parent, err := f.resolve(components[:len(components)-1])
	if err != nil {
		if errors.Is(err, ErrNotDirectory) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !parent.IsDir() {
		return nil, ErrNotDirectory
	}
	return f.lookup(parent, components[len(components)-1])
}

// resolveParent resolves everything but the last component and
// checks that it names a directory.
func (f *FS) resolveParent(components []string) (*FileInfo, error) {
	parent, err := f.resolve(components[:len(components)-1])
	if err != nil {
		return nil, err
	}
	if !parent.IsDir() {
		return nil, ErrNotDirectory
	}
	return parent, nil
}

// createEntry adds an empty file or directory named by the last of
// components to its parent directory.
func (f *FS) createEntry(components []string, attrs Attr) (*FileInfo, error) {
	name := components[len(components)-1]
	if err := validateName(name); err != nil {
		return nil, err
	}
	parent, err := f.resolveParent(components)
	if err != nil {
		return nil, err
	}
	if err := f.ensureDirectoryBlock(parent); err != nil {
		return nil, err
	}
	location, err := f.insert(parent.FirstBlock, name, attrs, 0, 0)
	if err != nil {
		return nil, err
	}
	return &FileInfo{Name: name, Attrs: attrs, Location: location}, nil
}
