// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable wall-clock source.
//
// Manifests and snapshot headers record when they were produced.
// Code that stamps them takes a [Clock] instead of calling time.Now,
// so tests can produce byte-identical artifacts:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	m, err := manifest.Build(fsys, manifest.WithClock(c))
package clock
