// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package blockstore provides fixed-size block I/O over a container
// that holds a chainfs filesystem image.
//
// A [Device] is anything that supports positioned reads and writes
// over a fixed byte range. Two implementations are provided:
//
//   - [FileDevice]: a regular file or raw block device accessed with
//     pread/pwrite (golang.org/x/sys/unix), with no user-space
//     buffering.
//   - [MemoryDevice]: a byte slice, used by tests and benchmarks to
//     avoid file I/O.
//
// [Store] layers block addressing on top of a Device. Every request
// is bounds-checked against the configured block count and fails with
// [ErrOutOfRange] when the block number is past the end of the
// container. Failures from the device itself are wrapped with [ErrIO]
// so callers can classify them with errors.Is without inspecting the
// operating-system error.
//
// A Store performs no caching: each ReadBlock and WriteBlock is one
// positioned transfer of exactly one block into or out of the
// caller's buffer.
package blockstore
