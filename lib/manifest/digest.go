// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 keyed hash.
type Digest [32]byte

// The keys are the ASCII domain names zero-padded to 32 bytes.
// Changing one invalidates every manifest in that domain.
var (
	fileDomainKey = [32]byte{
		'c', 'h', 'a', 'i', 'n', 'f', 's', '.', 'm', 'a', 'n', 'i', 'f', 'e', 's', 't',
		'.', 'f', 'i', 'l', 'e',
	}
	treeDomainKey = [32]byte{
		'c', 'h', 'a', 'i', 'n', 'f', 's', '.', 'm', 'a', 'n', 'i', 'f', 'e', 's', 't',
		'.', 't', 'r', 'e', 'e',
	}
)

// String returns the digest as lowercase hex.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d is the zero digest used for directories.
func (d Digest) IsZero() bool { return d == Digest{} }

// MarshalText encodes the digest as hex for JSON output.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a 64-character hex digest.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest parses a 64-character hex string.
func ParseDigest(text string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return digest, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}

// NewFileHasher returns a hasher producing file-domain digests.
func NewFileHasher() hash.Hash {
	return newKeyed(fileDomainKey)
}

func newKeyed(key [32]byte) *blake3.Hasher {
	// NewKeyed only fails for keys that are not 32 bytes.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("manifest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

func sum(hasher hash.Hash) Digest {
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}
