// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Unpack reads the tar archive from src and extracts its directories and regular
// files below dst on disk. Compression is detected from the leading bytes of src.
//
// Unpack takes ownership of src and closes it if it implements [io.Closer].
// Links, devices and metadata entries are skipped. If cfg is nil, the default
// configuration is used.
func Unpack(ctx context.Context, src io.Reader, dst string, cfg *Config) error {
	return UnpackTo(ctx, NewTargetDisk(), src, dst, cfg)
}

// UnpackTo extracts the tar archive from src to dst of target t. See [Unpack]
// for details.
func UnpackTo(ctx context.Context, t Target, src io.Reader, dst string, cfg *Config) error {
	if cfg == nil {
		cfg = NewConfig()
	}

	// prepare telemetry capturing
	td := &TelemetryData{ExtractedType: CompressionNone.Extension()}
	defer cfg.TelemetryHook()(ctx, td)
	defer captureExtractionDuration(td, now())

	// validate input
	if src == nil {
		return handleError(cfg, td, "cannot read input", fmt.Errorf("%w: no source stream", ErrInvalidInput))
	}
	a := newArchive(src)
	defer a.release(cfg)
	if isBlank(dst) {
		return handleError(cfg, td, "cannot extract", fmt.Errorf("%w: blank destination", ErrInvalidInput))
	}

	// check if context is canceled
	if err := ctx.Err(); err != nil {
		return handleError(cfg, td, "context error", err)
	}

	if err := a.open(cfg, src, td); err != nil {
		return handleError(cfg, td, "cannot prepare input", err)
	}
	if err := prepareDestination(t, dst, cfg); err != nil {
		return handleError(cfg, td, "cannot prepare destination", err)
	}

	cfg.Logger().Info("extract", "type", td.ExtractedType, "dst", dst)
	return extract(ctx, t, a, dst, cfg, td)
}

// extract walks the header blocks of a and dispatches each entry.
func extract(ctx context.Context, t Target, a *archive, dst string, cfg *Config, td *TelemetryData) error {
	buf := make([]byte, cfg.BufferSize())
	var entries int64

	for {
		// check if context is canceled
		if err := ctx.Err(); err != nil {
			return handleError(cfg, td, "context error", err)
		}

		offset, err := a.position()
		if err != nil {
			return handleError(cfg, td, "cannot read archive", err)
		}

		hdr, err := ReadHeader(a)
		if errors.Is(err, io.EOF) {
			// reached end of archive
			cfg.Logger().Debug("end of archive", "offset", offset)
			return nil
		}
		if err != nil {
			return handleError(cfg, td, fmt.Sprintf("cannot read header at offset %d", offset), err)
		}

		// check if maximum of entries is exceeded
		entries++
		if err := cfg.CheckMaxFiles(entries); err != nil {
			return handleError(cfg, td, "max entries check failed", err)
		}

		cfg.Logger().Debug("extract", "name", hdr.Name, "type", hdr.Type, "size", hdr.Size)
		if err := extractEntry(t, a, dst, hdr, buf, cfg, td); err != nil {
			return err
		}

		// content regions are padded to full blocks
		if err := a.align(); err != nil {
			return handleError(cfg, td, "cannot align to block boundary", err)
		}
	}
}

// extractEntry processes a single entry. Afterwards a is positioned directly
// behind the content region of hdr.
func extractEntry(t Target, a *archive, dst string, hdr *Header, buf []byte, cfg *Config, td *TelemetryData) error {
	switch hdr.Type {

	case TypeRegular, TypeRegularAlt, TypeContiguous:
		if hdr.IsDir() {
			return extractDir(t, a, dst, hdr, cfg, td)
		}
		return extractFile(t, a, dst, hdr, buf, cfg, td)

	case TypeDir:
		return extractDir(t, a, dst, hdr, cfg, td)

	case TypeLink, TypeSymlink:
		cfg.Logger().Debug("skip link", "name", hdr.Name)
		return skipEntry(a, hdr, cfg, td)

	case TypeChar, TypeBlock, TypeFifo:
		cfg.Logger().Debug("skip device", "name", hdr.Name, "type", hdr.Type)
		return skipEntry(a, hdr, cfg, td)

	case TypeXHeader, TypeXGlobalHeader:
		cfg.Logger().Debug("skip metadata", "name", hdr.Name, "type", hdr.Type)
		return skipEntry(a, hdr, cfg, td)

	default:
		cfg.Logger().Debug("skip unsupported entry", "name", hdr.Name, "type", hdr.Type)
		return skipEntry(a, hdr, cfg, td)
	}
}

// extractDir creates the directory of hdr. A content region is skipped.
func extractDir(t Target, a *archive, dst string, hdr *Header, cfg *Config, td *TelemetryData) error {
	if err := createDir(t, dst, hdr.Name, cfg); err != nil {
		return handleError(cfg, td, "failed to create directory", err)
	}
	td.ExtractedDirs++
	if err := a.skip(hdr.Size); err != nil {
		return handleError(cfg, td, "cannot skip directory content", err)
	}
	return nil
}

// extractFile copies the content of hdr into a file. An existing file is
// skipped unless config.Overwrite() returns true.
func extractFile(t Target, a *archive, dst string, hdr *Header, buf []byte, cfg *Config, td *TelemetryData) error {
	if err := securityCheck(t, dst, hdr.Name, cfg); err != nil {
		return handleError(cfg, td, "security check path failed", err)
	}

	// keep existing files
	if !cfg.Overwrite() {
		exists, err := fileExists(t, dst, hdr.Name)
		if err != nil {
			return handleError(cfg, td, "cannot check for existing file", err)
		}
		if exists {
			cfg.Logger().Debug("skip existing file", "name", hdr.Name)
			td.SkippedFiles++
			if err := a.skip(hdr.Size); err != nil {
				return handleError(cfg, td, "cannot skip file content", err)
			}
			return nil
		}
	}

	// check extraction size before writing
	if err := cfg.CheckExtractionSize(td.ExtractionSize + hdr.Size); err != nil {
		return handleError(cfg, td, "max extraction size exceeded", err)
	}

	w, err := createFile(t, dst, hdr.Name, cfg)
	if err != nil {
		return handleError(cfg, td, "cannot create file", err)
	}
	n, err := copyExact(w, a, hdr.Size, buf)
	td.ExtractionSize += n
	if closeErr := w.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("cannot close file: %w", closeErr)
	}
	if err != nil {
		return handleError(cfg, td, fmt.Sprintf("cannot write %s", hdr.Name), err)
	}
	td.ExtractedFiles++
	return nil
}

// skipEntry moves past the content region of an entry that is not extracted.
func skipEntry(a *archive, hdr *Header, cfg *Config, td *TelemetryData) error {
	td.IgnoredEntries++
	if err := a.skip(hdr.Size); err != nil {
		return handleError(cfg, td, fmt.Sprintf("cannot skip %s entry", hdr.Type), err)
	}
	return nil
}

// copyExact copies exactly size bytes from src to dst, reusing buf for every
// chunk. It returns the number of bytes written. If src ends early, an error
// wrapping [ErrLengthMismatch] is returned.
func copyExact(dst io.Writer, src io.Reader, size int64, buf []byte) (int64, error) {
	var written int64
	for written < size {
		chunk := buf
		if remaining := size - written; remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}

		nr, rerr := src.Read(chunk)
		if nr > 0 {
			nw, werr := dst.Write(chunk[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return written, rerr
		}
	}

	if written != size {
		return written, fmt.Errorf("%w: got %d of %d bytes", ErrLengthMismatch, written, size)
	}
	return written, nil
}

// handleError increases the error counter, sets the latest error and
// logs the error.
func handleError(c *Config, td *TelemetryData, msg string, err error) error {

	// increase error counter and set error
	td.ExtractionErrors++
	td.LastExtractionError = fmt.Errorf("%s: %w", msg, err)
	c.Logger().Error(msg, "error", err)

	// end extraction on error
	return td.LastExtractionError
}
