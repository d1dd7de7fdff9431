// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	"io"
	"testing"

	"github.com/bureau-foundation/chainfs/lib/blockstore"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

// NewContainer formats a container of blockCount blocks of blockSize
// bytes on a memory device. The container is closed during test
// cleanup; closing it earlier is harmless.
func NewContainer(t testing.TB, blockSize, blockCount int) *chainfs.FS {
	t.Helper()
	device := blockstore.NewMemoryDevice(int64(blockSize) * int64(blockCount))
	fsys, err := chainfs.Format(device, blockSize, blockCount)
	if err != nil {
		t.Fatalf("formatting %d blocks of %d bytes: %v", blockCount, blockSize, err)
	}
	t.Cleanup(func() { fsys.Close() })
	return fsys
}

// WriteFile creates or replaces the file at name with data.
func WriteFile(t testing.TB, fsys *chainfs.FS, name string, data []byte) {
	t.Helper()
	file, err := fsys.OpenFile(name, chainfs.Create|chainfs.Truncate)
	if err != nil {
		t.Fatalf("OpenFile(%q) error: %v", name, err)
	}
	defer file.Close()
	if _, err := io.Copy(file, bytes.NewReader(data)); err != nil {
		t.Fatalf("writing %q: %v", name, err)
	}
}

// ReadFile returns the contents of the file at name.
func ReadFile(t testing.TB, fsys *chainfs.FS, name string) []byte {
	t.Helper()
	file, err := fsys.OpenFile(name, 0)
	if err != nil {
		t.Fatalf("OpenFile(%q) error: %v", name, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		t.Fatalf("reading %q: %v", name, err)
	}
	return data
}

// RequireConsistent runs a consistency check and fails the test if it
// reports problems.
func RequireConsistent(t testing.TB, fsys *chainfs.FS) *chainfs.CheckReport {
	t.Helper()
	report, err := fsys.Check()
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if !report.OK() {
		t.Fatalf("Check() found problems: %v", report.Problems)
	}
	return report
}
