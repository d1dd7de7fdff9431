// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

func TestFromEngine(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCategory
	}{
		{&chainfs.PathError{Op: "open", Path: "/x", Err: chainfs.ErrNotFound}, CategoryNotFound},
		{chainfs.ErrExists, CategoryConflict},
		{chainfs.ErrNotEmpty, CategoryConflict},
		{fmt.Errorf("writing: %w", chainfs.ErrOutOfSpace), CategoryConflict},
		{chainfs.ErrNameTooLong, CategoryValidation},
		{chainfs.ErrIsDirectory, CategoryValidation},
		{chainfs.ErrBadFormat, CategoryInternal},
		{errors.New("disk on fire"), CategoryInternal},
	}
	for _, test := range tests {
		var toolError *ToolError
		if !errors.As(FromEngine(test.err), &toolError) {
			t.Errorf("FromEngine(%v) is not a ToolError", test.err)
			continue
		}
		if toolError.Category != test.want {
			t.Errorf("FromEngine(%v) category = %s, want %s", test.err, toolError.Category, test.want)
		}
		if !errors.Is(toolError, test.err) {
			t.Errorf("FromEngine(%v) lost the wrapped error", test.err)
		}
	}

	if FromEngine(nil) != nil {
		t.Error("FromEngine(nil) != nil")
	}
	original := NotFound("no such image")
	if FromEngine(original) != error(original) {
		t.Error("FromEngine() re-wrapped an error that already had a category")
	}
}
