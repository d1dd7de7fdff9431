// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package layout moves trees between the host and a container.
//
// A layout file describes a container to build: its geometry and an
// ordered list of directories and files. Layout files are JSONC (JSON
// with comments and trailing commas):
//
//	{
//	    // 4 MiB of 512-byte blocks
//	    "size": "4MiB",
//	    "entries": [
//	        {"path": "/etc", "dir": true},
//	        {"path": "/etc/motd", "content": "hello\n"},
//	        {"path": "/bin/init", "source": "build/init"},
//	    ],
//	}
//
// [Apply] writes the entries into a mounted container; [Build] creates
// the container too. [Extract] goes the other way, copying a
// container tree into a host directory.
package layout
