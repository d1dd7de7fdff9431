// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filippo.io/age"

	"github.com/bureau-foundation/chainfs/lib/blockstore"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/clock"
	"github.com/bureau-foundation/chainfs/lib/testutil"
)

const (
	testBlockSize  = 256
	testBlockCount = 64
)

var payload = bytes.Repeat([]byte("snapshot payload "), 200)

func newPopulatedFS(t *testing.T) *chainfs.FS {
	t.Helper()
	fsys := testutil.NewContainer(t, testBlockSize, testBlockCount)
	if err := fsys.Mkdir("/etc"); err != nil {
		t.Fatalf("Mkdir() error: %v", err)
	}
	testutil.WriteFile(t, fsys, "/etc/payload", payload)
	return fsys
}

func save(t *testing.T, fsys *chainfs.FS, opts ...Option) []byte {
	t.Helper()
	var buffer bytes.Buffer
	if _, err := Save(&buffer, fsys, opts...); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	return buffer.Bytes()
}

func restore(data []byte, opts ...Option) (*chainfs.FS, error) {
	reader, err := Open(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return reader.Restore(blockstore.NewMemoryDevice(reader.Header.Length))
}

func requirePayload(t *testing.T, fsys *chainfs.FS) {
	t.Helper()
	if got := testutil.ReadFile(t, fsys, "/etc/payload"); !bytes.Equal(got, payload) {
		t.Errorf("restored payload differs (%d bytes, want %d)", len(got), len(payload))
	}
	testutil.RequireConsistent(t, fsys)
}

func TestRoundTrip(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(string(compression), func(t *testing.T) {
			original := newPopulatedFS(t)
			data := save(t, original, WithCompression(compression))

			restored, err := restore(data)
			if err != nil {
				t.Fatalf("restore error: %v", err)
			}
			defer restored.Close()

			requirePayload(t, restored)
			if restored.Info() != original.Info() {
				t.Errorf("Info() = %+v, want %+v", restored.Info(), original.Info())
			}
			report, err := restored.Check()
			if err != nil {
				t.Fatalf("Check() error: %v", err)
			}
			if !report.OK() {
				t.Errorf("Check() problems: %v", report.Problems)
			}
		})
	}
}

func TestCompressionShrinksFreeSpace(t *testing.T) {
	fsys := newPopulatedFS(t)
	raw := save(t, fsys, WithCompression(CompressionNone))
	compressed := save(t, fsys, WithCompression(CompressionZstd))
	if len(compressed) >= len(raw)/2 {
		t.Errorf("zstd snapshot is %d bytes, raw is %d", len(compressed), len(raw))
	}
}

func TestHeader(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fsys := newPopulatedFS(t)
	data := save(t, fsys, WithClock(clock.Fake(created)), WithCompression(CompressionLZ4))

	header, err := ReadHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadHeader() error: %v", err)
	}
	if !header.Created.Equal(created) {
		t.Errorf("Created = %v, want %v", header.Created, created)
	}
	if header.Compression != CompressionLZ4 || header.Encrypted {
		t.Errorf("header = %+v", header)
	}
	if header.Length != testBlockSize*testBlockCount {
		t.Errorf("Length = %d, want %d", header.Length, testBlockSize*testBlockCount)
	}
	if header.BlockSize != testBlockSize || header.TotalBlocks != testBlockCount {
		t.Errorf("geometry = %d×%d", header.BlockSize, header.TotalBlocks)
	}
	if header.Digest.IsZero() {
		t.Error("Digest is zero")
	}
}

func TestEncrypted(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity() error: %v", err)
	}
	other, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity() error: %v", err)
	}
	recipients, err := ParseRecipients([]string{identity.Recipient().String()})
	if err != nil {
		t.Fatalf("ParseRecipients() error: %v", err)
	}

	data := save(t, newPopulatedFS(t), WithRecipients(recipients...))
	if bytes.Contains(data, []byte("snapshot payload")) {
		t.Fatal("encrypted snapshot contains plaintext")
	}

	if _, err := restore(data); err == nil {
		t.Error("restore without identities should fail")
	}
	if _, err := restore(data, WithIdentities(other)); err == nil {
		t.Error("restore with the wrong identity should fail")
	}

	identities, err := ParseIdentities(strings.NewReader(identity.String() + "\n"))
	if err != nil {
		t.Fatalf("ParseIdentities() error: %v", err)
	}
	restored, err := restore(data, WithIdentities(identities...))
	if err != nil {
		t.Fatalf("restore error: %v", err)
	}
	defer restored.Close()
	requirePayload(t, restored)
}

func TestCorruption(t *testing.T) {
	data := save(t, newPopulatedFS(t), WithCompression(CompressionNone))

	t.Run("flipped data byte", func(t *testing.T) {
		damaged := bytes.Clone(data)
		damaged[len(damaged)-1] ^= 0xFF
		if _, err := restore(damaged); !errors.Is(err, ErrCorrupt) {
			t.Errorf("restore error = %v, want ErrCorrupt", err)
		}
	})
	t.Run("truncated", func(t *testing.T) {
		if _, err := restore(data[:len(data)-10]); !errors.Is(err, ErrCorrupt) {
			t.Errorf("restore error = %v, want ErrCorrupt", err)
		}
	})
	t.Run("trailing data", func(t *testing.T) {
		padded := append(bytes.Clone(data), 0)
		if _, err := restore(padded); !errors.Is(err, ErrCorrupt) {
			t.Errorf("restore error = %v, want ErrCorrupt", err)
		}
	})
	t.Run("bad magic", func(t *testing.T) {
		damaged := bytes.Clone(data)
		damaged[0] = 'X'
		if _, err := ReadHeader(bytes.NewReader(damaged)); !errors.Is(err, ErrCorrupt) {
			t.Errorf("ReadHeader() error = %v, want ErrCorrupt", err)
		}
	})
}

func TestRestoreDeviceTooSmall(t *testing.T) {
	data := save(t, newPopulatedFS(t))
	reader, err := Open(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer reader.Close()
	if _, err := reader.Restore(blockstore.NewMemoryDevice(reader.Header.Length - 1)); err == nil {
		t.Error("Restore() onto a short device should fail")
	}
}

func TestRestoreFile(t *testing.T) {
	data := save(t, newPopulatedFS(t), WithCompression(CompressionLZ4))
	path := filepath.Join(t.TempDir(), "restored.img")

	fsys, header, err := RestoreFile(bytes.NewReader(data), path, nil)
	if err != nil {
		t.Fatalf("RestoreFile() error: %v", err)
	}
	requirePayload(t, fsys)
	if err := fsys.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := chainfs.Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer reopened.Close()
	if reopened.Info().TotalBlocks != header.TotalBlocks {
		t.Errorf("TotalBlocks = %d, want %d", reopened.Info().TotalBlocks, header.TotalBlocks)
	}
}

func TestRestoreFileTrailingData(t *testing.T) {
	data := save(t, newPopulatedFS(t), WithCompression(CompressionNone))
	header, err := ReadHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadHeader() error: %v", err)
	}
	padded := append(bytes.Clone(data), "extra"...)
	path := filepath.Join(t.TempDir(), "restored.img")

	if _, _, err := RestoreFile(bytes.NewReader(padded), path, nil); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("RestoreFile() error = %v, want ErrCorrupt", err)
	}
	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if stat.Size() != header.Length {
		t.Errorf("restored image is %d bytes, want %d: trailing data reached the device", stat.Size(), header.Length)
	}
}

func TestParseCompression(t *testing.T) {
	if _, err := ParseCompression("bzip2"); err == nil {
		t.Error("ParseCompression(bzip2) should fail")
	}
	if got, err := ParseCompression("lz4"); err != nil || got != CompressionLZ4 {
		t.Errorf("ParseCompression(lz4) = %q, %v", got, err)
	}
}
