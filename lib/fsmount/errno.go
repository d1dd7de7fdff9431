// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fsmount

import (
	"syscall"

	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

// errno maps an engine error to the errno returned to the kernel.
func errno(err error) syscall.Errno {
	switch chainfs.KindOf(err) {
	case chainfs.KindNone:
		return 0
	case chainfs.KindNotFound:
		return syscall.ENOENT
	case chainfs.KindNotDirectory:
		return syscall.ENOTDIR
	case chainfs.KindIsDirectory:
		return syscall.EISDIR
	case chainfs.KindOutOfSpace:
		return syscall.ENOSPC
	case chainfs.KindNameTooLong:
		return syscall.ENAMETOOLONG
	case chainfs.KindExists:
		return syscall.EEXIST
	case chainfs.KindNotEmpty:
		return syscall.ENOTEMPTY
	case chainfs.KindInvalidArgument:
		return syscall.EINVAL
	case chainfs.KindOutOfMemory:
		return syscall.ENOMEM
	default:
		return syscall.EIO
	}
}
