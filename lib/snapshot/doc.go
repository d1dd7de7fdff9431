// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot saves a whole container to a portable stream and
// restores it.
//
// A snapshot is an 8-byte magic, a 4-byte big-endian header length,
// a CBOR [Header], and the container bytes. The bytes are compressed
// with LZ4 frames or zstd, then optionally encrypted to age X25519
// recipients:
//
//	magic | len | header | age(compress(container))
//
// The header is never encrypted, so "chainfs snapshot info" can show
// geometry and the recorded digest without a key. The digest is a
// BLAKE3 keyed hash of the uncompressed container and is checked on
// restore before the container is mounted.
package snapshot
