// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by every chainfs
// artifact written outside a container: image manifests and the
// headers of container snapshots.
//
// The container format itself is a fixed little-endian layout and does
// not use this package. CBOR is used for the host-side files so that
// they are compact, self-describing, and extensible: decoders ignore
// fields they do not know, so newer tools can add fields without
// breaking older readers.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2). The same
// manifest always encodes to the same bytes, which lets a manifest's
// own digest identify it.
//
//	data, err := codec.Marshal(manifest)
//	err = codec.Unmarshal(data, &manifest)
//
// Snapshot headers precede a compressed payload in the same stream,
// so they are read with a stream decoder:
//
//	decoder := codec.NewDecoder(reader)
//	err := decoder.Decode(&header)
//
// Types that are only ever CBOR use `cbor` struct tags. Types also
// printed as JSON by the command line tool use `json` tags, which
// fxamacker/cbor honors when no `cbor` tag is present.
package codec
