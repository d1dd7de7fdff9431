// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/clock"
	"github.com/bureau-foundation/chainfs/lib/codec"
)

// FormatVersion is written into every manifest.
const FormatVersion = 1

// Kind distinguishes files from directories.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "dir"
)

// Entry describes one file or directory.
type Entry struct {
	Path   string `json:"path"`
	Kind   Kind   `json:"kind"`
	Size   uint32 `json:"size"`
	Digest Digest `json:"digest"`
}

// Manifest describes a container's tree.
type Manifest struct {
	Version     int       `json:"version"`
	Created     time.Time `json:"created"`
	BlockSize   int       `json:"block_size"`
	TotalBlocks int       `json:"total_blocks"`
	FreeBlocks  int       `json:"free_blocks"`

	// Tree is the digest over every entry in order.
	Tree    Digest  `json:"tree"`
	Entries []Entry `json:"entries"`
}

// Option configures Build.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the clock that stamps Created.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// Build walks fsys and records every entry. Directories are listed
// before their contents, each directory in its on-disk order.
func Build(fsys *chainfs.FS, opts ...Option) (*Manifest, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	info := fsys.Info()
	manifest := &Manifest{
		Version:     FormatVersion,
		Created:     clock.OrReal(o.clock).Now().UTC(),
		BlockSize:   info.BlockSize,
		TotalBlocks: info.TotalBlocks,
		FreeBlocks:  info.FreeBlocks,
	}

	err := fsys.Walk("/", func(name string, entry *chainfs.FileInfo) error {
		if name == "/" {
			return nil
		}
		if entry.IsDir() {
			manifest.Entries = append(manifest.Entries, Entry{Path: name, Kind: KindDirectory})
			return nil
		}
		digest, err := hashFile(fsys, name)
		if err != nil {
			return err
		}
		manifest.Entries = append(manifest.Entries, Entry{
			Path:   name,
			Kind:   KindFile,
			Size:   entry.Size,
			Digest: digest,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building manifest: %w", err)
	}

	if manifest.Tree, err = treeDigest(manifest.Entries); err != nil {
		return nil, err
	}
	return manifest, nil
}

func hashFile(fsys *chainfs.FS, name string) (Digest, error) {
	file, err := fsys.OpenFile(name, 0)
	if err != nil {
		return Digest{}, err
	}
	defer file.Close()

	hasher := NewFileHasher()
	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", name, err)
	}
	return sum(hasher), nil
}

// treeDigest hashes the deterministic encoding of the entry list.
func treeDigest(entries []Entry) (Digest, error) {
	if entries == nil {
		entries = []Entry{}
	}
	encoded, err := codec.Marshal(entries)
	if err != nil {
		return Digest{}, fmt.Errorf("encoding manifest entries: %w", err)
	}
	hasher := newKeyed(treeDomainKey)
	hasher.Write(encoded)
	return sum(hasher), nil
}

// Marshal encodes m as deterministic CBOR.
func Marshal(m *Manifest) ([]byte, error) {
	return codec.Marshal(m)
}

// Unmarshal decodes a CBOR manifest and checks its tree digest.
func Unmarshal(data []byte) (*Manifest, error) {
	var m Manifest
	if err := codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if m.Version != FormatVersion {
		return nil, fmt.Errorf("manifest version %d, want %d", m.Version, FormatVersion)
	}
	tree, err := treeDigest(m.Entries)
	if err != nil {
		return nil, err
	}
	if tree != m.Tree {
		return nil, fmt.Errorf("manifest tree digest %s does not match its entries (%s)", m.Tree, tree)
	}
	return &m, nil
}

// WriteFile stores m at path.
func WriteFile(path string, m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile loads and checks the manifest at path.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
