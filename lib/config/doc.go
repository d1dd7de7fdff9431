// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration of the chainfs command
// line tool.
//
// Configuration comes from exactly one file, named by the
// CHAINFS_CONFIG environment variable ([Load]) or by the --config flag
// ([LoadFile]). There is no search path and no layering: a value is
// either in that file or it takes the default from [Default]. Running
// without any configuration file is normal; every setting has a flag.
//
// Path-valued fields support ${VAR} and ${VAR:-default} expansion so a
// shared file can refer to ${HOME}. No other field is expanded.
//
// Container geometry is only read from configuration when a new
// container is created. An existing container's superblock is always
// authoritative.
//
// Example:
//
//	image: ${HOME}/images/scratch.img
//	create:
//	  size: 64MiB
//	logging:
//	  level: info
//	mount:
//	  fs_name: scratch
//	snapshot:
//	  compression: zstd
//	  recipients:
//	    - age1...
//	  identity_file: ${HOME}/.config/chainfs/identity.txt
package config
