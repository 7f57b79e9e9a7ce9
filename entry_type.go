// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar

import "fmt"

// EntryType is the typeflag of a tar header.
type EntryType byte

// Known typeflags. Any other value is kept as-is and handled by the
// catch-all branch of the extraction loop.
const (
	TypeRegular       EntryType = '0'
	TypeRegularAlt    EntryType = '\x00'
	TypeLink          EntryType = '1'
	TypeSymlink       EntryType = '2'
	TypeChar          EntryType = '3'
	TypeBlock         EntryType = '4'
	TypeDir           EntryType = '5'
	TypeFifo          EntryType = '6'
	TypeContiguous    EntryType = '7'
	TypeXGlobalHeader EntryType = 'g'
	TypeXHeader       EntryType = 'x'
)

var entryTypeNames = map[EntryType]string{
	TypeRegular:       "regular",
	TypeRegularAlt:    "regular",
	TypeLink:          "hard-link",
	TypeSymlink:       "symlink",
	TypeChar:          "char-device",
	TypeBlock:         "block-device",
	TypeDir:           "directory",
	TypeFifo:          "fifo",
	TypeContiguous:    "contiguous",
	TypeXGlobalHeader: "pax-global-header",
	TypeXHeader:       "pax-header",
}

// String returns a human readable name of the typeflag.
func (t EntryType) String() string {
	if name, ok := entryTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%q)", byte(t))
}

// IsRegular returns true for typeflags whose content is written to a file.
// Contiguous files are extracted as regular files.
func (t EntryType) IsRegular() bool {
	return t == TypeRegular || t == TypeRegularAlt || t == TypeContiguous
}
