// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for packages built on
// the chainfs engine.
//
// [NewContainer] formats an in-memory container and closes it when
// the test completes. [WriteFile], [ReadFile], and [RequireConsistent]
// wrap the engine calls that nearly every test repeats.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that tests
// waiting on goroutines, such as a FUSE server loop, do not hang.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// The engine's own tests cannot import this package.
package testutil
