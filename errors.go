// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned if the source stream cannot be read or
	// the destination is blank.
	ErrInvalidInput = errors.New("invalid input")

	// ErrChecksumMismatch is matched by every [*ChecksumError].
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrLengthMismatch is returned if an entry provides fewer content bytes than
	// its header declares.
	ErrLengthMismatch = errors.New("file length mismatch")

	// ErrInvalidHeader is returned if a numeric header field cannot be decoded.
	ErrInvalidHeader = errors.New("invalid header")

	// ErrPathTraversal is returned if an entry would be written outside of the destination.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrSymlinkInPath is returned if the path of an entry contains a symlink
	// and symlink traversal is not enabled.
	ErrSymlinkInPath = errors.New("symlink in path")

	// ErrMaxFilesExceeded indicates that the maximum number of entries is exceeded.
	ErrMaxFilesExceeded = errors.New("maximum files exceeded")

	// ErrMaxExtractionSizeExceeded indicates that the maximum extraction size is exceeded.
	ErrMaxExtractionSizeExceeded = errors.New("maximum extraction size exceeded")

	// ErrMaxInputSizeExceeded indicates that the maximum input size is exceeded.
	ErrMaxInputSizeExceeded = errors.New("maximum input size exceeded")
)

// ChecksumError describes a header block whose stored checksum disagrees with
// the computed one.
type ChecksumError struct {
	// Name is the entry name decoded from the header block.
	Name string

	// Stored is the checksum decoded from the header.
	Stored int64

	// Computed is the checksum calculated over the header block.
	Computed int64
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s: header of %q stores %o, computed %o", ErrChecksumMismatch, e.Name, e.Stored, e.Computed)
}

// Is reports whether target is [ErrChecksumMismatch].
func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}
