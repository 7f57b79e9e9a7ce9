// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar

import (
	"errors"
	"fmt"
	"io"
)

// archive is the input of an extraction, positioned at its first header. It
// owns the stream that was passed to the extraction and the scratch copy.
type archive struct {
	io.ReadSeeker

	// start is the position of the first header
	start int64

	// src is closed once it is not needed anymore
	src io.Closer

	// cache is the scratch copy of compressed or non-seekable input
	cache *scratch
}

// newArchive takes ownership of src.
func newArchive(src io.Reader) *archive {
	a := &archive{}
	if c, ok := src.(io.Closer); ok {
		a.src = c
	}
	return a
}

// open prepares src for the extraction loop. Seekable plain tar input is read
// in place. Compressed input is decompressed, and everything else is copied, into
// a scratch resource, after which src is released.
func (a *archive) open(cfg *Config, src io.Reader, td *TelemetryData) error {
	// an already decompressing stream is copied as-is
	if cfg.DecompressedInput() || isDecompressingStream(src) {
		cfg.Logger().Debug("input is a decompressing stream")
		ler := newLimitErrorReader(src, cfg.MaxInputSize())
		err := a.materialize(cfg, ler)
		td.InputSize = ler.ReadBytes()
		return err
	}

	if rs, ok := src.(io.ReadSeeker); ok {
		if start, err := rs.Seek(0, io.SeekCurrent); err == nil {
			return a.openSeekable(cfg, rs, start, td)
		}
		// e.g. a pipe behind an *os.File
		cfg.Logger().Debug("input is not seekable")
	}

	// peek at the leading bytes of the stream
	ler := newLimitErrorReader(src, cfg.MaxInputSize())
	hr, err := newHeaderReader(ler, maxHeaderLength)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	c := Detect(hr.PeekHeader())
	td.Compression, td.ExtractedType = string(c), c.Extension()
	if c == CompressionNone {
		err = a.materialize(cfg, hr)
	} else {
		err = a.decompress(cfg, c, hr)
	}
	td.InputSize = ler.ReadBytes()
	return err
}

// openSeekable prepares input that supports absolute positioning.
func (a *archive) openSeekable(cfg *Config, rs io.ReadSeeker, start int64, td *TelemetryData) error {
	header := make([]byte, maxHeaderLength)
	n, err := io.ReadFull(rs, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: cannot read header: %w", ErrInvalidInput, err)
	}
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return fmt.Errorf("%w: cannot seek to start: %w", ErrInvalidInput, err)
	}

	c := Detect(header[:n])
	td.Compression, td.ExtractedType = string(c), c.Extension()
	if c != CompressionNone {
		ler := newLimitErrorReader(rs, cfg.MaxInputSize())
		err := a.decompress(cfg, c, ler)
		td.InputSize = ler.ReadBytes()
		return err
	}

	// plain tar is extracted in place
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: cannot determine size: %w", ErrInvalidInput, err)
	}
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return fmt.Errorf("%w: cannot seek to start: %w", ErrInvalidInput, err)
	}
	td.InputSize = end - start
	if cfg.MaxInputSize() != -1 && td.InputSize > cfg.MaxInputSize() {
		return ErrMaxInputSizeExceeded
	}
	a.ReadSeeker, a.start = rs, start
	return nil
}

// decompress copies the decompressed content of r into a scratch resource.
func (a *archive) decompress(cfg *Config, c Compression, r io.Reader) error {
	cfg.Logger().Debug("decompress input", "compression", c)
	dr, err := c.decompress(r)
	if err != nil {
		return fmt.Errorf("cannot start %s decompression: %w", c, err)
	}
	err = a.materialize(cfg, dr)
	if closer, ok := dr.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

// materialize copies r into a scratch resource and releases src afterwards.
func (a *archive) materialize(cfg *Config, r io.Reader) error {
	s, err := newScratch(cfg, r)
	if err != nil {
		return err
	}
	cfg.Logger().Debug("copied input", "scratch", s.Name())
	a.ReadSeeker, a.cache = s, s

	// the copy replaces src
	return a.closeSource()
}

// skip moves forward by n bytes.
func (a *archive) skip(n int64) error {
	if n == 0 {
		return nil
	}
	if _, err := a.Seek(n, io.SeekCurrent); err != nil {
		return fmt.Errorf("cannot skip %d bytes: %w", n, err)
	}
	return nil
}

// position returns the current offset relative to the first header.
func (a *archive) position() (int64, error) {
	pos, err := a.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("cannot determine position: %w", err)
	}
	return pos - a.start, nil
}

// align moves forward to the next multiple of the block size relative to the
// first header. Nothing happens on a block boundary.
func (a *archive) align() error {
	pos, err := a.position()
	if err != nil {
		return err
	}
	return a.skip((blockSize - pos%blockSize) % blockSize)
}

// release closes the scratch copy and the source stream.
func (a *archive) release(cfg *Config) {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			cfg.Logger().Warn("cannot release scratch copy", "scratch", a.cache.Name(), "error", err)
		}
		a.cache = nil
	}
	if err := a.closeSource(); err != nil {
		cfg.Logger().Warn("cannot close input", "error", err)
	}
}

// closeSource closes src once.
func (a *archive) closeSource() error {
	if a.src == nil {
		return nil
	}
	err := a.src.Close()
	a.src = nil
	return err
}
