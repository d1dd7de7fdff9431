// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest records the contents of a chainfs container so
// that a later copy can be checked against it.
//
// A [Manifest] lists every file and directory with its size and, for
// files, a BLAKE3 digest of the contents. Digests are keyed hashes in
// a chainfs-specific domain, so a manifest digest never collides with
// a plain BLAKE3 sum of the same bytes used elsewhere. The manifest
// also carries a tree digest over all entries: two containers with
// the same tree digest hold the same names, kinds, and contents,
// regardless of block size or on-disk placement.
//
// Manifests are stored as deterministic CBOR (lib/codec) and printed
// as JSON by the command line tool.
package manifest
