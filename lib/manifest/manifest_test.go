// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/clock"
	"github.com/bureau-foundation/chainfs/lib/testutil"
)

var testTime = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

func newPopulatedFS(t *testing.T, blockSize, blockCount int) *chainfs.FS {
	t.Helper()
	fsys := testutil.NewContainer(t, blockSize, blockCount)
	if err := fsys.Mkdir("/docs"); err != nil {
		t.Fatalf("Mkdir() error: %v", err)
	}
	testutil.WriteFile(t, fsys, "/docs/readme.txt", []byte("hello manifest"))
	testutil.WriteFile(t, fsys, "/data.bin", bytes.Repeat([]byte{1, 2, 3}, 500))
	return fsys
}

func TestBuild(t *testing.T) {
	fsys := newPopulatedFS(t, 128, 128)
	m, err := Build(fsys, WithClock(clock.Fake(testTime)))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if !m.Created.Equal(testTime) {
		t.Errorf("Created = %v, want %v", m.Created, testTime)
	}
	var paths []string
	for _, entry := range m.Entries {
		paths = append(paths, entry.Path)
	}
	if got := strings.Join(paths, ","); got != "/docs,/docs/readme.txt,/data.bin" {
		t.Errorf("entry paths = %s", got)
	}

	readme := m.Entries[1]
	hasher := NewFileHasher()
	hasher.Write([]byte("hello manifest"))
	if readme.Digest != sum(hasher) {
		t.Errorf("readme digest = %s, want %s", readme.Digest, sum(hasher))
	}
	if readme.Size != 14 || readme.Kind != KindFile {
		t.Errorf("readme entry = %+v", readme)
	}
	if !m.Entries[0].Digest.IsZero() || m.Entries[0].Kind != KindDirectory {
		t.Errorf("directory entry = %+v", m.Entries[0])
	}
}

func TestTreeDigestIgnoresGeometry(t *testing.T) {
	small, err := Build(newPopulatedFS(t, 128, 128))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	large, err := Build(newPopulatedFS(t, 512, 64))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if small.Tree != large.Tree {
		t.Errorf("tree digests differ across block sizes: %s vs %s", small.Tree, large.Tree)
	}
}

func TestVerify(t *testing.T) {
	fsys := newPopulatedFS(t, 128, 128)
	m, err := Build(fsys)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	report, err := Verify(fsys, m)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if !report.Clean() {
		t.Fatalf("Verify() on unchanged container = %s", report)
	}

	testutil.WriteFile(t, fsys, "/docs/readme.txt", []byte("hello manifesT"))
	if err := fsys.Remove("/data.bin"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	testutil.WriteFile(t, fsys, "/new", nil)

	report, err = Verify(fsys, m)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if len(report.Missing) != 1 || report.Missing[0] != "/data.bin" {
		t.Errorf("Missing = %v, want [/data.bin]", report.Missing)
	}
	if len(report.Extra) != 1 || report.Extra[0] != "/new" {
		t.Errorf("Extra = %v, want [/new]", report.Extra)
	}
	if len(report.Changed) != 1 || report.Changed[0].Path != "/docs/readme.txt" {
		t.Errorf("Changed = %v, want /docs/readme.txt", report.Changed)
	}
	if report.String() != "1 missing, 1 extra, 1 changed" {
		t.Errorf("String() = %q", report.String())
	}
}

func TestFileRoundTripChecksTree(t *testing.T) {
	m, err := Build(newPopulatedFS(t, 128, 128), WithClock(clock.Fake(testTime)))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "image.manifest")
	if err := WriteFile(path, m); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if loaded.Tree != m.Tree || len(loaded.Entries) != len(m.Entries) {
		t.Errorf("ReadFile() = %+v, want %+v", loaded, m)
	}

	m.Entries[0].Path = "/tampered"
	data, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if _, err := Unmarshal(data); err == nil {
		t.Error("Unmarshal() accepted a manifest whose entries do not match its tree digest")
	}
}

func TestEmptyContainer(t *testing.T) {
	m, err := Build(testutil.NewContainer(t, 64, 16))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	data, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if _, err := Unmarshal(data); err != nil {
		t.Errorf("Unmarshal(empty manifest) error: %v", err)
	}
}

func TestDigestJSON(t *testing.T) {
	hasher := NewFileHasher()
	hasher.Write([]byte("x"))
	entry := Entry{Path: "/x", Kind: KindFile, Size: 1, Digest: sum(hasher)}

	encoded, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("json.Marshal() error: %v", err)
	}
	if !strings.Contains(string(encoded), `"digest":"`+entry.Digest.String()+`"`) {
		t.Errorf("JSON = %s, want hex digest", encoded)
	}
	var decoded Entry
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if decoded != entry {
		t.Errorf("decoded = %+v, want %+v", decoded, entry)
	}

	if _, err := ParseDigest("abcd"); err == nil {
		t.Error("ParseDigest(short) should fail")
	}
}
