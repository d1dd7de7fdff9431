// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command chainfs creates, inspects, and edits chainfs container
// images. Run "chainfs --help" for the command list.
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/commands"
)

func main() {
	if err := commands.Root().Execute(os.Args[1:]); err != nil {
		// Commands that already printed their result (check, manifest
		// verify) exit non-zero without an extra error line.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
