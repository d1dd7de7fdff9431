// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

// ErrorCategory classifies a command failure.
type ErrorCategory string

const (
	// CategoryValidation: bad arguments, flags, or names. Fix the
	// input and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound: a named path or file does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryConflict: the operation collides with existing state,
	// such as an existing entry or a non-empty directory.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryInternal: I/O failures, corrupt containers, and bugs.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized command error. It wraps Err, so errors.Is
// and errors.As see through it.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Validation reports bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound reports a missing path or file.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict reports a collision with existing state.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Internal reports an unexpected failure.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// FromEngine categorizes err by its engine kind. Errors that already
// carry a category and nil pass through unchanged.
func FromEngine(err error) error {
	if err == nil {
		return nil
	}
	var toolError *ToolError
	if errors.As(err, &toolError) {
		return err
	}

	category := CategoryInternal
	switch chainfs.KindOf(err) {
	case chainfs.KindNotFound:
		category = CategoryNotFound
	case chainfs.KindExists, chainfs.KindNotEmpty, chainfs.KindOutOfSpace:
		category = CategoryConflict
	case chainfs.KindNotDirectory, chainfs.KindIsDirectory, chainfs.KindNameTooLong, chainfs.KindInvalidArgument:
		category = CategoryValidation
	}
	return &ToolError{Category: category, Err: err}
}
