// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// scratch is a seekable copy of a stream that cannot be positioned itself, e.g.
// decompressed data or stdin. The copy is kept in a temporary file, a caller owned
// file or in memory.
type scratch struct {
	io.ReadSeeker

	// file backs the copy unless it is kept in memory
	file *os.File

	// owned is true if file was created for this copy
	owned bool
}

// newScratch copies src into a new scratch resource and rewinds it to offset zero.
// Nothing is left behind if the copy fails.
func newScratch(cfg *Config, src io.Reader) (*scratch, error) {
	if cfg.CacheInMemory() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, src); err != nil {
			return nil, fmt.Errorf("cannot copy input into memory: %w", err)
		}
		return &scratch{ReadSeeker: bytes.NewReader(buf.Bytes())}, nil
	}

	s := &scratch{file: cfg.ScratchFile()}
	if s.file == nil {
		f, err := os.CreateTemp(cfg.TempDir(), cfg.TempPattern())
		if err != nil {
			return nil, fmt.Errorf("cannot create temporary file: %w", err)
		}
		s.file, s.owned = f, true
	} else if err := s.reset(); err != nil {
		return nil, fmt.Errorf("cannot reuse scratch file: %w", err)
	}
	s.ReadSeeker = s.file

	if _, err := io.Copy(s.file, src); err != nil {
		return nil, errors.Join(fmt.Errorf("cannot copy input to %s: %w", s.file.Name(), err), s.Close())
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Join(fmt.Errorf("cannot rewind %s: %w", s.file.Name(), err), s.Close())
	}
	return s, nil
}

// Name returns the file name of the copy, or "memory".
func (s *scratch) Name() string {
	if s.file == nil {
		return "memory"
	}
	return s.file.Name()
}

// Close releases the copy. A temporary file is closed and removed, a caller
// owned file is truncated to zero length and stays open.
func (s *scratch) Close() error {
	if s.file == nil {
		s.ReadSeeker = nil
		return nil
	}
	if !s.owned {
		return s.reset()
	}
	return errors.Join(s.file.Truncate(0), s.file.Close(), os.Remove(s.file.Name()))
}

// reset truncates the file and rewinds it.
func (s *scratch) reset() error {
	if err := s.file.Truncate(0); err != nil {
		return err
	}
	_, err := s.file.Seek(0, io.SeekStart)
	return err
}
