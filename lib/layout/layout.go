// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

// Layout describes a container to build.
type Layout struct {
	// Size is a capacity such as "4MiB"; the geometry is derived
	// with [chainfs.ChooseGeometry]. Mutually exclusive with
	// BlockSize and Blocks.
	Size string `json:"size,omitempty"`

	BlockSize int `json:"block_size,omitempty"`
	Blocks    int `json:"blocks,omitempty"`

	// Entries are applied in order. Parent directories are created
	// as needed.
	Entries []Entry `json:"entries"`
}

// Entry is one directory or file. Exactly one of Dir, Source, and
// Content is set.
type Entry struct {
	Path string `json:"path"`

	Dir bool `json:"dir,omitempty"`

	// Source is a host file. Relative paths are resolved against
	// the directory passed to Apply.
	Source string `json:"source,omitempty"`

	// Content is literal file contents.
	Content *string `json:"content,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data and
// decodes a Layout. The result is validated.
func Parse(data []byte) (*Layout, error) {
	var layout Layout
	if err := json.Unmarshal(jsonc.ToJSON(data), &layout); err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &layout, nil
}

// ReadFile reads and parses the layout file at path.
func ReadFile(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	layout, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return layout, nil
}

// Validate reports every problem with the layout at once.
func (l *Layout) Validate() error {
	var errs []error
	if l.Size != "" {
		if l.BlockSize != 0 || l.Blocks != 0 {
			errs = append(errs, fmt.Errorf("size cannot be combined with block_size or blocks"))
		} else if _, err := humanize.ParseBytes(l.Size); err != nil {
			errs = append(errs, fmt.Errorf("size: %w", err))
		}
	} else if l.BlockSize != 0 || l.Blocks != 0 {
		if err := chainfs.ValidateGeometry(l.BlockSize, l.Blocks); err != nil {
			errs = append(errs, fmt.Errorf("geometry: %w", err))
		}
	}

	for index, entry := range l.Entries {
		kinds := 0
		if entry.Dir {
			kinds++
		}
		if entry.Source != "" {
			kinds++
		}
		if entry.Content != nil {
			kinds++
		}
		switch {
		case entry.Path == "" || path.Clean("/"+entry.Path) == "/":
			errs = append(errs, fmt.Errorf("entries[%d]: path must name something below the root", index))
		case kinds != 1:
			errs = append(errs, fmt.Errorf("entries[%d] (%s): exactly one of dir, source, content must be set", index, entry.Path))
		}
	}
	return errors.Join(errs...)
}

// HasGeometry reports whether the layout names a geometry.
func (l *Layout) HasGeometry() bool {
	return l.Size != "" || l.BlockSize != 0
}

// Geometry returns the block size and count the layout asks for.
func (l *Layout) Geometry() (blockSize, blockCount int, err error) {
	if l.Size != "" {
		size, err := humanize.ParseBytes(l.Size)
		if err != nil {
			return 0, 0, fmt.Errorf("size: %w", err)
		}
		return chainfs.ChooseGeometry(int64(size))
	}
	if err := chainfs.ValidateGeometry(l.BlockSize, l.Blocks); err != nil {
		return 0, 0, err
	}
	return l.BlockSize, l.Blocks, nil
}

// Build creates a container at imagePath with the layout's geometry
// and applies its entries. The container is returned mounted.
func Build(imagePath string, l *Layout, baseDir string, opts ...chainfs.Option) (*chainfs.FS, error) {
	blockSize, blockCount, err := l.Geometry()
	if err != nil {
		return nil, err
	}
	fsys, err := chainfs.CreateExact(imagePath, blockSize, blockCount, opts...)
	if err != nil {
		return nil, err
	}
	if err := Apply(fsys, l, baseDir); err != nil {
		fsys.Close()
		return nil, err
	}
	return fsys, nil
}

// Apply writes every entry into fsys in order. Existing directories
// are reused and existing files are overwritten.
func Apply(fsys *chainfs.FS, l *Layout, baseDir string) error {
	for _, entry := range l.Entries {
		name := path.Clean("/" + entry.Path)
		if err := MkdirAll(fsys, path.Dir(name)); err != nil {
			return err
		}

		switch {
		case entry.Dir:
			err := fsys.Mkdir(name)
			if errors.Is(err, chainfs.ErrExists) {
				if info, statErr := fsys.Stat(name); statErr == nil && info.IsDir() {
					err = nil
				}
			}
			if err != nil {
				return err
			}
		case entry.Content != nil:
			if err := writeFile(fsys, name, []byte(*entry.Content)); err != nil {
				return err
			}
		default:
			source := entry.Source
			if !filepath.IsAbs(source) {
				source = filepath.Join(baseDir, source)
			}
			if err := CopyIn(fsys, source, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// MkdirAll creates dir and any missing parents.
func MkdirAll(fsys *chainfs.FS, dir string) error {
	dir = path.Clean("/" + dir)
	if dir == "/" {
		return nil
	}
	info, err := fsys.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return &chainfs.PathError{Op: "mkdir", Path: dir, Err: chainfs.ErrNotDirectory}
		}
		return nil
	}
	if !errors.Is(err, chainfs.ErrNotFound) {
		return err
	}
	if err := MkdirAll(fsys, path.Dir(dir)); err != nil {
		return err
	}
	return fsys.Mkdir(dir)
}

func writeFile(fsys *chainfs.FS, name string, data []byte) error {
	file, err := fsys.OpenFile(name, chainfs.Create|chainfs.Truncate)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// CopyIn copies the host file at source into the container at name,
// replacing any existing contents.
func CopyIn(fsys *chainfs.FS, source, name string) error {
	input, err := os.Open(source)
	if err != nil {
		return err
	}
	defer input.Close()

	file, err := fsys.OpenFile(name, chainfs.Create|chainfs.Truncate)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, input); err != nil {
		file.Close()
		return fmt.Errorf("copying %s to %s: %w", source, name, err)
	}
	return file.Close()
}
