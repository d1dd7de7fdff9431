// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package chainfs

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestCreateOpenContainerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")

	f, err := CreateSized(path, 1<<20)
	if err != nil {
		t.Fatalf("CreateSized() error: %v", err)
	}
	if info := f.Info(); info.BlockSize != 512 || info.TotalBlocks != 2048 {
		t.Errorf("geometry = %d x %d, want 512 x 2048", info.BlockSize, info.TotalBlocks)
	}
	if err := f.Mkdir("/docs"); err != nil {
		t.Fatalf("Mkdir() error: %v", err)
	}
	writeFile(t, f, "/docs/readme", []byte("persisted across open"))
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer reopened.Close()
	if got := readFile(t, reopened, "/docs/readme"); !bytes.Equal(got, []byte("persisted across open")) {
		t.Errorf("content = %q", got)
	}
	requireConsistent(t, reopened)
}

func TestOpenRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exact.img")
	f, err := CreateExact(path, 64, 16)
	if err != nil {
		t.Fatalf("CreateExact() error: %v", err)
	}
	f.Close()

	if _, err := Open(filepath.Join(t.TempDir(), "missing.img")); !errors.Is(err, ErrIO) {
		t.Errorf("Open(missing) error = %v, want ErrIO", err)
	}
	if _, err := CreateExact(path, 60, 16); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("CreateExact(bad block size) error = %v, want ErrInvalidArgument", err)
	}

	var pathErr *PathError
	_, err = Open(path + ".none")
	if !errors.As(err, &pathErr) || pathErr.Path != path+".none" {
		t.Errorf("Open() error = %v, want a PathError naming the container", err)
	}
}
