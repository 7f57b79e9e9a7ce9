// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// blockSize is the size of a header block and the alignment of content regions.
const blockSize = 512

// field is a fixed position inside a header block.
type field struct {
	offset int
	length int
}

// of returns the bytes of f inside block.
func (f field) of(block []byte) []byte {
	return block[f.offset : f.offset+f.length]
}

// contains reports whether position i belongs to f.
func (f field) contains(i int) bool {
	return i >= f.offset && i < f.offset+f.length
}

// header layout, see https://pubs.opengroup.org/onlinepubs/9699919799/utilities/pax.html
var (
	fieldName     = field{offset: 0, length: 100}
	fieldSize     = field{offset: 124, length: 12}
	fieldChecksum = field{offset: 148, length: 8}
	fieldTypeflag = field{offset: 156, length: 1}
	fieldMagic    = field{offset: 257, length: 8}
	fieldPrefix   = field{offset: 345, length: 155}
)

// magicGNU marks old GNU headers, which store timestamps where ustar keeps the prefix.
var magicGNU = []byte("ustar  \x00")

// Header is a decoded tar header block.
type Header struct {
	// Name is the slash separated path of the entry, including the ustar prefix.
	Name string

	// Type is the typeflag of the entry.
	Type EntryType

	// Size is the length of the content region following the header.
	Size int64

	// Checksum is the checksum stored in the header.
	Checksum int64
}

// IsDir returns true if the entry describes a directory. Regular entries with
// a trailing slash are directories as well.
func (h *Header) IsDir() bool {
	return h.Type == TypeDir || (h.Type.IsRegular() && strings.HasSuffix(h.Name, "/"))
}

// ReadHeader reads exactly one header block from r.
//
// If fewer than 100 bytes are available, or the name field is blank after trailing
// NUL bytes are removed, the end of the archive is reached and io.EOF is returned.
// A header that is cut off after its name field results in io.ErrUnexpectedEOF.
// A checksum that does not match the block results in a [*ChecksumError].
//
// The checksum is the POSIX sum over all 512 bytes with the checksum field counted
// as spaces. Blocks with a NUL at offset 155 and non-zero padding in the last 12
// bytes are therefore rejected, even though a sum over bytes 0 to 500 alone
// would accept them.
func ReadHeader(r io.Reader) (*Header, error) {
	var block [blockSize]byte

	// the name decides whether another entry follows
	if _, err := io.ReadFull(r, fieldName.of(block[:])); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("cannot read header: %w", err)
	}
	if isBlank(strings.TrimRight(string(fieldName.of(block[:])), "\x00")) {
		return nil, io.EOF
	}

	// complete the block
	if _, err := io.ReadFull(r, block[fieldName.length:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("cannot read header: %w", err)
	}

	return parseHeader(block[:])
}

// parseHeader decodes a complete header block and verifies its checksum.
func parseHeader(block []byte) (*Header, error) {
	name := parseString(fieldName.of(block))

	stored, err := parseNumeric(fieldChecksum.of(block))
	if err != nil {
		return nil, fmt.Errorf("checksum of %q: %w", name, err)
	}
	if computed := computeChecksum(block); stored != computed {
		return nil, &ChecksumError{Name: name, Stored: stored, Computed: computed}
	}

	size, err := parseNumeric(fieldSize.of(block))
	if err != nil {
		return nil, fmt.Errorf("size of %q: %w", name, err)
	}

	if !bytes.Equal(fieldMagic.of(block), magicGNU) {
		if prefix := parseString(fieldPrefix.of(block)); !isBlank(prefix) {
			name = strings.TrimSuffix(prefix, "/") + "/" + name
		}
	}

	return &Header{
		Name:     name,
		Type:     EntryType(fieldTypeflag.of(block)[0]),
		Size:     size,
		Checksum: stored,
	}, nil
}

// computeChecksum sums all bytes of block as unsigned values, counting the
// checksum field as eight spaces.
func computeChecksum(block []byte) int64 {
	var sum int64
	for i, c := range block {
		if fieldChecksum.contains(i) {
			c = ' '
		}
		sum += int64(c)
	}
	return sum
}

// parseString returns the content of b up to the first NUL byte.
func parseString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// isBlank returns true if s is empty or consists of white space only.
func isBlank(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}

// parseNumeric decodes a numeric header field. Values are octal ASCII, padded
// with spaces or NUL bytes. GNU base-256 encoding (high bit of the first byte set)
// is accepted for values that do not fit into the octal representation.
func parseNumeric(b []byte) (int64, error) {
	if len(b) > 0 && b[0]&0x80 != 0 {
		return parseBase256(b)
	}

	s := strings.Trim(string(b), " \x00")
	if len(s) == 0 {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 8, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid octal value %q", ErrInvalidHeader, s)
	}
	return n, nil
}

// parseBase256 decodes the GNU binary representation of a non-negative number.
func parseBase256(b []byte) (int64, error) {
	if b[0]&0x40 != 0 {
		return 0, fmt.Errorf("%w: negative base-256 value", ErrInvalidHeader)
	}
	var n int64
	for i, c := range b {
		if i == 0 {
			c &= 0x7f
		}
		if n>>55 != 0 {
			return 0, fmt.Errorf("%w: base-256 value overflows", ErrInvalidHeader)
		}
		n = n<<8 | int64(c)
	}
	return n, nil
}
