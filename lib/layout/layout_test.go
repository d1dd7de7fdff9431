// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/testutil"
)

func readFile(t *testing.T, fsys *chainfs.FS, name string) string {
	t.Helper()
	return string(testutil.ReadFile(t, fsys, name))
}

func TestParse(t *testing.T) {
	layout, err := Parse([]byte(`{
		// comment
		"size": "1MiB",
		"entries": [
			{"path": "/etc", "dir": true},
			{"path": "etc/motd", "content": "hi\n"}, /* trailing comma next */
		],
	}`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(layout.Entries) != 2 || layout.Entries[1].Content == nil || *layout.Entries[1].Content != "hi\n" {
		t.Errorf("Entries = %+v", layout.Entries)
	}
	blockSize, blockCount, err := layout.Geometry()
	if err != nil {
		t.Fatalf("Geometry() error: %v", err)
	}
	if blockSize != 512 || blockCount != 2048 {
		t.Errorf("Geometry() = %d, %d; want 512, 2048", blockSize, blockCount)
	}
}

func TestValidate(t *testing.T) {
	content := "x"
	tests := []struct {
		name     string
		layout   Layout
		fragment string
	}{
		{"size and blocks", Layout{Size: "1MiB", Blocks: 10}, "size cannot be combined"},
		{"bad size", Layout{Size: "huge"}, "size:"},
		{"bad geometry", Layout{BlockSize: 12, Blocks: 10}, "geometry:"},
		{"root entry", Layout{Entries: []Entry{{Path: "/", Dir: true}}}, "below the root"},
		{"no kind", Layout{Entries: []Entry{{Path: "/a"}}}, "exactly one of"},
		{"two kinds", Layout{Entries: []Entry{{Path: "/a", Dir: true, Content: &content}}}, "exactly one of"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.layout.Validate()
			if err == nil || !strings.Contains(err.Error(), test.fragment) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, test.fragment)
			}
		})
	}
}

func TestApply(t *testing.T) {
	baseDir := t.TempDir()
	hostData := bytes.Repeat([]byte{0xAB}, 1000)
	if err := os.WriteFile(filepath.Join(baseDir, "blob"), hostData, 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	greeting := "hello\n"
	layout := &Layout{Entries: []Entry{
		{Path: "/usr/share", Dir: true},
		{Path: "/usr/share/greeting", Content: &greeting},
		{Path: "/var/lib/blob", Source: "blob"},
		{Path: "/usr", Dir: true},
	}}

	fsys := testutil.NewContainer(t, 256, 256)
	if err := Apply(fsys, layout, baseDir); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if got := readFile(t, fsys, "/usr/share/greeting"); got != greeting {
		t.Errorf("greeting = %q", got)
	}
	if got := readFile(t, fsys, "/var/lib/blob"); got != string(hostData) {
		t.Errorf("blob has %d bytes, want %d", len(got), len(hostData))
	}
	testutil.RequireConsistent(t, fsys)

	fileOverDir := &Layout{Entries: []Entry{{Path: "/usr/share/greeting/x", Dir: true}}}
	if err := Apply(fsys, fileOverDir, baseDir); !errors.Is(err, chainfs.ErrNotDirectory) {
		t.Errorf("Apply() below a file error = %v, want ErrNotDirectory", err)
	}
	missingSource := &Layout{Entries: []Entry{{Path: "/x", Source: "absent"}}}
	if err := Apply(fsys, missingSource, baseDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Apply() with a missing source error = %v, want ErrNotExist", err)
	}
}

func TestBuildAndExtract(t *testing.T) {
	work := t.TempDir()
	motd := "welcome\n"
	nested := "deep\n"
	layout := &Layout{BlockSize: 128, Blocks: 512, Entries: []Entry{
		{Path: "/motd", Content: &motd},
		{Path: "/a/b/c", Content: &nested},
	}}

	imagePath := filepath.Join(work, "image")
	fsys, err := Build(imagePath, layout, work)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	defer fsys.Close()
	if fsys.BlockSize() != 128 {
		t.Errorf("BlockSize() = %d, want 128", fsys.BlockSize())
	}

	tree := filepath.Join(work, "tree")
	files, err := Extract(fsys, "/", tree, ExtractOptions{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if files != 2 {
		t.Errorf("Extract() wrote %d files, want 2", files)
	}
	got, err := os.ReadFile(filepath.Join(tree, "a", "b", "c"))
	if err != nil || string(got) != nested {
		t.Errorf("extracted /a/b/c = %q, %v", got, err)
	}

	flat := filepath.Join(work, "flat")
	files, err = Extract(fsys, "/", flat, ExtractOptions{Flat: true})
	if err != nil {
		t.Fatalf("Extract(flat) error: %v", err)
	}
	if files != 1 {
		t.Errorf("Extract(flat) wrote %d files, want 1", files)
	}
	if _, err := os.Stat(filepath.Join(flat, "a")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("flat extract created a subdirectory: %v", err)
	}

	if _, err := Extract(fsys, "/motd", filepath.Join(work, "x"), ExtractOptions{}); !errors.Is(err, chainfs.ErrNotDirectory) {
		t.Errorf("Extract(file) error = %v, want ErrNotDirectory", err)
	}
}
