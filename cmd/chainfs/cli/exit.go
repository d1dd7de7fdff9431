// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError ends the program with Code without printing anything
// more. Commands return it after writing their own output, for
// outcomes such as a failed consistency check.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns Code. main looks for this method on returned
// errors.
func (e *ExitError) ExitCode() int {
	return e.Code
}
