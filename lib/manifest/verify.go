// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"

	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

// Change is an entry present on both sides with different content.
type Change struct {
	Path     string `json:"path"`
	Expected Entry  `json:"expected"`
	Actual   Entry  `json:"actual"`
}

// Report is the result of comparing a container against a manifest.
type Report struct {
	// Missing entries are in the manifest but not in the container.
	Missing []string `json:"missing,omitempty"`

	// Extra entries are in the container but not in the manifest.
	Extra []string `json:"extra,omitempty"`

	Changed []Change `json:"changed,omitempty"`
}

// Clean reports whether the container matched the manifest.
func (r *Report) Clean() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0 && len(r.Changed) == 0
}

// String summarizes the report on one line.
func (r *Report) String() string {
	if r.Clean() {
		return "container matches manifest"
	}
	return fmt.Sprintf("%d missing, %d extra, %d changed", len(r.Missing), len(r.Extra), len(r.Changed))
}

// Verify compares the current contents of fsys with expected. Entry
// order does not matter; geometry and free space are not compared.
func Verify(fsys *chainfs.FS, expected *Manifest) (*Report, error) {
	actual, err := Build(fsys)
	if err != nil {
		return nil, err
	}
	return Compare(expected, actual), nil
}

// Compare reports the differences between two manifests.
func Compare(expected, actual *Manifest) *Report {
	report := &Report{}
	actualByPath := make(map[string]Entry, len(actual.Entries))
	for _, entry := range actual.Entries {
		actualByPath[entry.Path] = entry
	}

	seen := make(map[string]bool, len(expected.Entries))
	for _, want := range expected.Entries {
		seen[want.Path] = true
		got, ok := actualByPath[want.Path]
		if !ok {
			report.Missing = append(report.Missing, want.Path)
			continue
		}
		if got != want {
			report.Changed = append(report.Changed, Change{Path: want.Path, Expected: want, Actual: got})
		}
	}
	for _, entry := range actual.Entries {
		if !seen[entry.Path] {
			report.Extra = append(report.Extra, entry.Path)
		}
	}
	return report
}
