// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar_test

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// archiveContent describes an entry that is packed by packTar
type archiveContent struct {
	Name       string
	Content    []byte
	Filetype   byte
	Linktarget string
}

// packTar creates a tar archive from contents
func packTar(t *testing.T, contents []archiveContent) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, c := range contents {
		hdr := &tar.Header{
			Name:     c.Name,
			Typeflag: c.Filetype,
			Mode:     0644,
			Linkname: c.Linktarget,
		}
		if c.Filetype == tar.TypeReg {
			hdr.Size = int64(len(c.Content))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("cannot write header: %v", err)
		}
		if c.Filetype == tar.TypeReg {
			if _, err := tw.Write(c.Content); err != nil {
				t.Fatalf("cannot write content: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("cannot close tar writer: %v", err)
	}
	return buf.Bytes()
}

// rawEntry returns a ustar header block for name followed by content, which is
// padded to a full block. The size field declares size bytes.
func rawEntry(name string, typeflag byte, size int64, content []byte) []byte {
	block := make([]byte, 512)
	copy(block[0:100], name)
	copy(block[100:108], "0000644\x00")
	copy(block[124:136], fmt.Sprintf("%011o\x00", size))
	block[156] = typeflag
	copy(block[257:265], "ustar\x0000")
	fillChecksum(block)

	padded := make([]byte, (len(content)+511)/512*512)
	copy(padded, content)
	return append(block, padded...)
}

// fillChecksum sets the checksum field of block the way common tar writers do
func fillChecksum(block []byte) {
	copy(block[148:156], "        ")
	var sum int64
	for _, c := range block {
		sum += int64(c)
	}
	copy(block[148:156], fmt.Sprintf("%06o\x00 ", sum))
}

// endOfArchive are the two zero blocks that terminate an archive
func endOfArchive() []byte {
	return make([]byte, 1024)
}

// rawArchive concatenates entries and terminates the archive
func rawArchive(entries ...[]byte) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.Write(e)
	}
	buf.Write(endOfArchive())
	return buf.Bytes()
}

// compressGzip compresses data with gzip
func compressGzip(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	return compress(t, &buf, w, data)
}

// compressBzip2 compresses data with bzip2
func compressBzip2(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	if err != nil {
		t.Fatalf("cannot create bzip2 writer: %v", err)
	}
	return compress(t, &buf, w, data)
}

// compressXz compresses data with xz
func compressXz(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("cannot create xz writer: %v", err)
	}
	return compress(t, &buf, w, data)
}

// compressZstd compresses data with zstd
func compressZstd(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("cannot create zstd writer: %v", err)
	}
	return compress(t, &buf, w, data)
}

// compressLZ4 compresses data with lz4
func compressLZ4(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	return compress(t, &buf, w, data)
}

func compress(t *testing.T, buf *bytes.Buffer, w io.WriteCloser, data []byte) []byte {
	t.Helper()
	if _, err := w.Write(data); err != nil {
		t.Fatalf("cannot compress data: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("cannot close compressor: %v", err)
	}
	return buf.Bytes()
}

// nonSeekable hides all methods of r except Read
func nonSeekable(r io.Reader) io.Reader {
	return struct{ io.Reader }{r}
}

// readFile returns the content of name below dir
func readFile(t *testing.T, dir string, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("cannot read %s: %v", name, err)
	}
	return string(b)
}
