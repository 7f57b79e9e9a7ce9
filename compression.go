// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar

import (
	"bytes"
	"fmt"
	"io"
)

// Compression names the compression of an archive by its file extension. The zero
// value is an uncompressed tar archive.
type Compression string

// Supported compressions.
const (
	CompressionNone  Compression = ""
	CompressionBzip2 Compression = fileExtensionBzip2
	CompressionGZip  Compression = fileExtensionGZip
	CompressionLZ4   Compression = fileExtensionLZ4
	CompressionXz    Compression = fileExtensionXz
	CompressionZstd  Compression = fileExtensionZstd
)

// fileExtensionTar is the file extension for tar files
const fileExtensionTar = "tar"

// Extension returns the file extension of an archive with compression c, e.g. "tar.gz".
func (c Compression) Extension() string {
	if c == CompressionNone {
		return fileExtensionTar
	}
	return fmt.Sprintf("%s.%s", fileExtensionTar, c)
}

// decompressionFunc returns a reader that decompresses src.
type decompressionFunc func(src io.Reader) (io.Reader, error)

// headerCheck is a function that checks if the given header matches the expected magic bytes.
type headerCheck func([]byte) bool

// availableDecompressors is the collection of supported compressions with their
// magic bytes. All magic bytes are located at offset zero.
var availableDecompressors = []struct {
	Compression Compression
	HeaderCheck headerCheck
	MagicBytes  [][]byte
	Decompress  decompressionFunc
}{
	{
		Compression: CompressionGZip,
		HeaderCheck: isGZip,
		MagicBytes:  magicBytesGZip,
		Decompress:  decompressGZipStream,
	},
	{
		Compression: CompressionBzip2,
		HeaderCheck: isBzip2,
		MagicBytes:  magicBytesBzip2,
		Decompress:  decompressBzip2Stream,
	},
	{
		Compression: CompressionXz,
		HeaderCheck: isXz,
		MagicBytes:  magicBytesXz,
		Decompress:  decompressXzStream,
	},
	{
		Compression: CompressionZstd,
		HeaderCheck: isZstd,
		MagicBytes:  magicBytesZstd,
		Decompress:  decompressZstdStream,
	},
	{
		Compression: CompressionLZ4,
		HeaderCheck: isLZ4,
		MagicBytes:  magicBytesLZ4,
		Decompress:  decompressLZ4Stream,
	},
}

// maxHeaderLength is the number of leading bytes needed to detect a compression.
// It covers a complete tar header block, which always wins over magic bytes.
var maxHeaderLength = blockSize

// init ensures maxHeaderLength covers all magic bytes
func init() {
	for _, d := range availableDecompressors {
		for _, mb := range d.MagicBytes {
			if len(mb) > maxHeaderLength {
				maxHeaderLength = len(mb)
			}
		}
	}
}

// Detect returns the compression whose magic bytes match the leading bytes of a
// stream. A header that starts with a valid tar header block is never reported as
// compressed, so that entry names like "BZh9" are not mistaken for bzip2 data.
func Detect(header []byte) Compression {
	if isTarHeader(header) {
		return CompressionNone
	}
	for _, d := range availableDecompressors {
		if d.HeaderCheck(header) {
			return d.Compression
		}
	}
	return CompressionNone
}

// decompress wraps src with the decompressor of c.
func (c Compression) decompress(src io.Reader) (io.Reader, error) {
	for _, d := range availableDecompressors {
		if d.Compression == c {
			return d.Decompress(src)
		}
	}
	return nil, fmt.Errorf("unsupported compression %q", string(c))
}

// isTarHeader checks if header starts with a tar header block with a valid checksum.
func isTarHeader(header []byte) bool {
	if len(header) < blockSize {
		return false
	}
	_, err := parseHeader(header[:blockSize])
	return err == nil
}

// matchesMagicBytes checks if data contains one of magicBytes at offset.
func matchesMagicBytes(data []byte, offset int, magicBytes [][]byte) bool {
	// check all possible magic bytes until match is found
	for _, mb := range magicBytes {
		// check if header is long enough
		if offset+len(mb) > len(data) {
			continue
		}

		// check for byte match
		if bytes.Equal(mb, data[offset:offset+len(mb)]) {
			return true
		}
	}

	// no match found
	return false
}
