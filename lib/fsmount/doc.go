// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fsmount exposes a mounted container as a read-write FUSE
// filesystem.
//
// Every node is addressed by its container path. The engine has no
// locking of its own, so one mutex serializes every operation that
// touches the container.
//
// # Open files
//
// All open descriptors of one file share a single engine handle,
// reference counted on the node, so that size changes made through
// one descriptor are seen by the others. Writes past the end of a
// file fill the gap with zeros.
//
// Unlinking a file that is still open frees its blocks immediately.
// Later reads and writes through descriptors that were open at the
// time fail with EIO.
//
// # Unsupported
//
// Rename, links, symlinks, ownership, and permission changes are not
// part of the container format and return ENOTSUP or are ignored.
package fsmount
