// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainfs

import (
	"errors"
	"io/fs"

	"github.com/bureau-foundation/chainfs/lib/blockstore"
)

// Kind classifies an error returned by the engine.
type Kind int

const (
	KindNone Kind = iota
	KindIO
	KindNotFound
	KindNotDirectory
	KindIsDirectory
	KindOutOfSpace
	KindNameTooLong
	KindBlockOutOfRange
	KindExists
	KindBadFormat
	KindBadVersion
	KindNotEmpty
	KindOutOfMemory
	KindInvalidArgument
	KindUnknown
)

var kindMessages = [...]string{
	KindNone:            "No error",
	KindIO:              "Operating system error",
	KindNotFound:        "No such file or directory",
	KindNotDirectory:    "File is not a directory",
	KindIsDirectory:     "File is a directory",
	KindOutOfSpace:      "Filesystem out of space",
	KindNameTooLong:     "Name too long",
	KindBlockOutOfRange: "Block number is out of range",
	KindExists:          "File already exists",
	KindBadFormat:       "Bad file format",
	KindBadVersion:      "Invalid filesystem version",
	KindNotEmpty:        "Directory is not empty",
	KindOutOfMemory:     "Out of memory",
	KindInvalidArgument: "Invalid argument",
	KindUnknown:         "Undefined error",
}

// String returns the human-readable message for the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindMessages) {
		return kindMessages[KindUnknown]
	}
	return kindMessages[k]
}

// kindError is a sentinel carrying its Kind. The optional base lets
// sentinels match the io/fs errors of the same meaning.
type kindError struct {
	kind Kind
	base error
}

func (e *kindError) Error() string { return e.kind.String() }

func (e *kindError) Unwrap() error { return e.base }

func newKindError(kind Kind, base error) error {
	return &kindError{kind: kind, base: base}
}

// Sentinel errors. Wrapped errors can be tested with errors.Is.
var (
	// ErrIO reports a failure of the underlying device.
	ErrIO = blockstore.ErrIO

	// ErrBlockOutOfRange reports a block number past the container's
	// end, which on a mounted filesystem means a corrupt chain.
	ErrBlockOutOfRange = blockstore.ErrOutOfRange

	ErrNotFound     = newKindError(KindNotFound, fs.ErrNotExist)
	ErrNotDirectory = newKindError(KindNotDirectory, nil)
	ErrIsDirectory  = newKindError(KindIsDirectory, nil)
	ErrOutOfSpace   = newKindError(KindOutOfSpace, nil)
	ErrNameTooLong  = newKindError(KindNameTooLong, nil)
	ErrExists       = newKindError(KindExists, fs.ErrExist)
	ErrBadFormat    = newKindError(KindBadFormat, nil)
	ErrBadVersion   = newKindError(KindBadVersion, nil)
	ErrNotEmpty     = newKindError(KindNotEmpty, nil)

	// ErrOutOfMemory exists for compatibility with tools that report
	// the historical error set. The engine itself never returns it.
	ErrOutOfMemory = newKindError(KindOutOfMemory, nil)

	// ErrInvalidArgument reports a request the format cannot express:
	// bad geometry, an empty or reserved name, removing the root.
	ErrInvalidArgument = newKindError(KindInvalidArgument, fs.ErrInvalid)
)

// PathError records an error together with the operation and path
// that caused it.
type PathError = fs.PathError

var kindSentinels = []struct {
	kind Kind
	err  error
}{
	{KindIO, ErrIO},
	{KindBlockOutOfRange, ErrBlockOutOfRange},
	{KindNotFound, ErrNotFound},
	{KindNotDirectory, ErrNotDirectory},
	{KindIsDirectory, ErrIsDirectory},
	{KindOutOfSpace, ErrOutOfSpace},
	{KindNameTooLong, ErrNameTooLong},
	{KindExists, ErrExists},
	{KindBadFormat, ErrBadFormat},
	{KindBadVersion, ErrBadVersion},
	{KindNotEmpty, ErrNotEmpty},
	{KindOutOfMemory, ErrOutOfMemory},
	{KindInvalidArgument, ErrInvalidArgument},
}

// KindOf returns the kind of the first engine sentinel found in err's
// chain. It returns KindNone for a nil error and KindUnknown for
// errors that did not originate in the engine.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, sentinel := range kindSentinels {
		if errors.Is(err, sentinel.err) {
			return sentinel.kind
		}
	}
	return KindUnknown
}

func pathError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &PathError{Op: op, Path: path, Err: err}
}
