// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands implements the chainfs subcommands.
//
// Every command that works on a container takes --image (falling back
// to the "image" key of the configuration file), opens the container,
// performs one operation, and closes it. Configuration comes from
// --config or the file named by CHAINFS_CONFIG; without either the
// built-in defaults apply.
package commands
