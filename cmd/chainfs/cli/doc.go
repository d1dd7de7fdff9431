// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the chainfs
// binary.
//
// A [Command] has a name, help text, an optional [pflag.FlagSet]
// factory, and either a Run function or nested subcommands.
// [Command.Execute] routes arguments down the tree, parses flags, and
// prints structured help. Unknown commands and flags get a "did you
// mean" suggestion based on edit distance (suggest.go).
//
// Flags are usually declared as tagged struct fields and bound with
// [FlagsFromParams]:
//
//	type lsParams struct {
//	    cli.JSONOutput
//	    Long bool `flag:"long,l" desc:"show block numbers"`
//	}
//
// Commands report failures as [ToolError] values carrying a category
// (validation, not_found, conflict, internal); [FromEngine] derives the
// category from a container engine error.
package cli
