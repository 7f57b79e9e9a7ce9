// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar

import (
	stdgzip "compress/gzip"
	"io"

	"github.com/klauspost/compress/gzip"
)

// fileExtensionGZip is the file extension for gzip files.
const fileExtensionGZip = "gz"

// magicBytesGZip are the magic bytes for gzip compressed files.
//
// https://socketloop.com/tutorials/golang-gunzip-file
var magicBytesGZip = [][]byte{
	{0x1f, 0x8b},
}

// isGZip checks if the header matches the magic bytes for gzip compressed files.
func isGZip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesGZip)
}

// decompressGZipStream returns an io.Reader that decompresses src with gzip algorithm.
func decompressGZipStream(src io.Reader) (io.Reader, error) {
	return gzip.NewReader(src)
}

// isDecompressingStream returns true if r is a gzip reader, which is accepted
// as an already decompressing input.
func isDecompressingStream(r io.Reader) bool {
	switch r.(type) {
	case *gzip.Reader, *stdgzip.Reader:
		return true
	}
	return false
}
