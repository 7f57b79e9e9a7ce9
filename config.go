// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
)

// ConfigOption is a function pointer to implement the option pattern
type ConfigOption func(*Config)

// Config provides a configuration struct and options to adjust the configuration.
//
// The configuration struct holds all configuration options for the extraction process.
// The configuration options can be adjusted using the option pattern style.
type Config struct {
	// bufferSize is the size of the buffer that is reused to copy file contents
	bufferSize int

	// cacheInMemory offers the option to keep the seekable copy of a compressed
	// or non-seekable input in memory instead of a temporary file
	cacheInMemory bool

	// create destination directory if it does not exist
	createDestination bool

	// customCreateDirMode is the file mode for created directories (respecting umask)
	customCreateDirMode fs.FileMode

	// customFileMode is the file mode for created files (respecting umask)
	customFileMode fs.FileMode

	// decompressedInput marks the input as an already decompressing stream
	decompressedInput bool

	// traverseSymlinks traverses symlinks to directories during extraction
	traverseSymlinks bool

	// logger stream for extraction
	logger logger

	// maxExtractionSize is the maximum size over all extracted files.
	// Set value to -1 to disable the check.
	maxExtractionSize int64

	// maxFiles is the maximum of entries in an archive.
	// Set value to -1 to disable the check.
	maxFiles int64

	// maxInputSize is the maximum size of the input
	// Set value to -1 to disable the check.
	maxInputSize int64

	// Define if files should be overwritten in the destination
	overwrite bool

	// scratchFile is a caller owned file that is reused as seekable copy of the input
	scratchFile *os.File

	// telemetryHook is a function to consume telemetry data after finished extraction
	// Important: do not adjust this value after extraction started
	telemetryHook TelemetryHook

	// tempDir is the directory for temporary files, empty for the os default
	tempDir string

	// tempPattern is the name pattern for temporary files, see os.CreateTemp
	tempPattern string
}

// BufferSize returns the size of the buffer used to copy file contents.
func (c *Config) BufferSize() int {
	return c.bufferSize
}

// CacheInMemory returns true if the seekable copy of the input is kept in memory.
//
// If set to false, the copy is stored on disk to avoid memory exhaustion.
func (c *Config) CacheInMemory() bool {
	return c.cacheInMemory
}

// CheckMaxFiles checks if counter exceeds the configured maximum. If the maximum is exceeded,
// a [ErrMaxFilesExceeded] error is returned.
func (c *Config) CheckMaxFiles(counter int64) error {

	// check if disabled
	if c.MaxFiles() == -1 {
		return nil
	}

	// check value
	if counter > c.MaxFiles() {
		return ErrMaxFilesExceeded
	}
	return nil
}

// CheckExtractionSize checks if fileSize exceeds configured maximum. If the maximum is exceeded,
// a [ErrMaxExtractionSizeExceeded] error is returned.
func (c *Config) CheckExtractionSize(fileSize int64) error {

	// check if disabled
	if c.MaxExtractionSize() == -1 {
		return nil
	}

	// check value
	if fileSize > c.MaxExtractionSize() {
		return ErrMaxExtractionSizeExceeded
	}
	return nil
}

// CreateDestination returns true if the destination directory should be
// created if it does not exist.
func (c *Config) CreateDestination() bool {
	return c.createDestination
}

// CustomCreateDirMode returns the file mode for created directories. (respecting umask)
func (c *Config) CustomCreateDirMode() fs.FileMode {
	return c.customCreateDirMode
}

// CustomFileMode returns the file mode for created files. (respecting umask)
func (c *Config) CustomFileMode() fs.FileMode {
	return c.customFileMode
}

// DecompressedInput returns true if the input is declared as an already
// decompressing stream, which skips compression detection.
func (c *Config) DecompressedInput() bool {
	return c.decompressedInput
}

// TraverseSymlinks returns true if symlinks should be traversed during extraction.
func (c *Config) TraverseSymlinks() bool {
	return c.traverseSymlinks
}

// Logger returns the logger.
func (c *Config) Logger() logger {
	return c.logger
}

// MaxExtractionSize returns the maximum size over all extracted files.
func (c *Config) MaxExtractionSize() int64 {
	return c.maxExtractionSize
}

// MaxFiles returns the maximum of entries in an archive.
func (c *Config) MaxFiles() int64 {
	return c.maxFiles
}

// MaxInputSize returns the maximum size of the input.
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// Overwrite returns true if files should be overwritten in the destination.
func (c *Config) Overwrite() bool {
	return c.overwrite
}

// ScratchFile returns the caller owned scratch file or nil.
func (c *Config) ScratchFile() *os.File {
	return c.scratchFile
}

// TelemetryHook returns the telemetry hook.
func (c *Config) TelemetryHook() TelemetryHook {
	if c.telemetryHook == nil {
		return defaultTelemetryHook
	}
	return c.telemetryHook
}

// TempDir returns the directory for temporary files. An empty string refers
// to the default directory of the os.
func (c *Config) TempDir() string {
	return c.tempDir
}

// TempPattern returns the name pattern for temporary files.
func (c *Config) TempPattern() string {
	return c.tempPattern
}

const (
	defaultBufferSize          = 40960         // 40 KiB copy buffer
	defaultCacheInMemory       = false         // cache on disk
	defaultCreateDestination   = true          // create destination directory
	defaultCustomCreateDirMode = 0750          // default directory permissions rwxr-x---
	defaultCustomFileMode      = 0640          // default file permissions rw-r-----
	defaultDecompressedInput   = false         // detect compression
	defaultMaxFiles            = 100000        // 100k files
	defaultMaxExtractionSize   = 1 << (10 * 3) // 1 Gb
	defaultMaxInputSize        = 1 << (10 * 3) // 1 Gb
	defaultOverwrite           = false         // don't overwrite existing files
	defaultTempDir             = ""            // os.TempDir()
	defaultTempPattern         = "untar-*"     // random suffix
	defaultTraverseSymlinks    = false         // don't traverse symlinks
	minBufferSize              = blockSize     // smallest accepted copy buffer
)

var (
	// slog to discard
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	// no operation telemetry hook
	defaultTelemetryHook = func(ctx context.Context, d *TelemetryData) {
		// noop
	}
)

// NewConfig is a generator option that takes opts as adjustments of the
// default configuration in an option pattern style.
func NewConfig(opts ...ConfigOption) *Config {

	// setup default values
	config := &Config{
		bufferSize:          defaultBufferSize,
		cacheInMemory:       defaultCacheInMemory,
		createDestination:   defaultCreateDestination,
		customCreateDirMode: defaultCustomCreateDirMode,
		customFileMode:      defaultCustomFileMode,
		decompressedInput:   defaultDecompressedInput,
		logger:              defaultLogger,
		maxFiles:            defaultMaxFiles,
		maxExtractionSize:   defaultMaxExtractionSize,
		maxInputSize:        defaultMaxInputSize,
		overwrite:           defaultOverwrite,
		telemetryHook:       defaultTelemetryHook,
		tempDir:             defaultTempDir,
		tempPattern:         defaultTempPattern,
		traverseSymlinks:    defaultTraverseSymlinks,
	}

	// Loop through each option
	for _, opt := range opts {
		opt(config)
	}

	return config
}

// WithBufferSize options pattern function to set the size of the buffer that is
// reused to copy file contents. Values below 512 bytes are raised to 512 bytes.
func WithBufferSize(size int) ConfigOption {
	return func(c *Config) {
		if size < minBufferSize {
			size = minBufferSize
		}
		c.bufferSize = size
	}
}

// WithCacheInMemory options pattern function to enable/disable caching in memory.
// This applies to compressed and non-seekable input, which needs a seekable copy.
//
// If set to false, the cache is stored on disk to avoid memory exhaustion.
func WithCacheInMemory(cache bool) ConfigOption {
	return func(c *Config) {
		c.cacheInMemory = cache
	}
}

// WithCreateDestination options pattern function to create
// destination directory if it does not exist.
func WithCreateDestination(create bool) ConfigOption {
	return func(c *Config) {
		c.createDestination = create
	}
}

// WithCustomCreateDirMode options pattern function to set the file mode
// for created directories. (respecting umask)
func WithCustomCreateDirMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) {
		c.customCreateDirMode = mode
	}
}

// WithCustomFileMode options pattern function to set the file mode for created files.
// (respecting umask)
func WithCustomFileMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) {
		c.customFileMode = mode
	}
}

// WithDecompressedInput options pattern function to declare the input as an already
// decompressing stream, e.g. a gzip reader. The stream is copied into a seekable
// scratch resource without compression detection.
func WithDecompressedInput(yes bool) ConfigOption {
	return func(c *Config) {
		c.decompressedInput = yes
	}
}

// WithInsecureTraverseSymlinks options pattern function to traverse symlinks during extraction.
func WithInsecureTraverseSymlinks(traverse bool) ConfigOption {
	return func(c *Config) {
		c.traverseSymlinks = traverse
	}
}

// WithLogger options pattern function to set a custom logger.
func WithLogger(logger logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithMaxExtractionSize options pattern function to set maximum size over all
// extracted files. (-1 to disable check)
func WithMaxExtractionSize(maxExtractionSize int64) ConfigOption {
	return func(c *Config) {
		c.maxExtractionSize = maxExtractionSize
	}
}

// WithMaxFiles options pattern function to set maximum number of entries
// processed during the extraction. (-1 to disable check)
func WithMaxFiles(maxFiles int64) ConfigOption {
	return func(c *Config) {
		c.maxFiles = maxFiles
	}
}

// WithMaxInputSize options pattern function to set MaxInputSize for extraction input file. (-1 to disable check)
func WithMaxInputSize(maxInputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = maxInputSize
	}
}

// WithOverwrite options pattern function specify if files should be overwritten in the destination.
func WithOverwrite(enable bool) ConfigOption {
	return func(c *Config) {
		c.overwrite = enable
	}
}

// WithScratchFile options pattern function to reuse f as seekable copy of the input.
// The caller keeps ownership of f: it is truncated to zero length after the
// extraction, but neither closed nor removed.
func WithScratchFile(f *os.File) ConfigOption {
	return func(c *Config) {
		c.scratchFile = f
	}
}

// WithTelemetryHook options pattern function to set a [TelemetryHook], which is called after extraction.
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}

// WithTempDir options pattern function to set the directory for temporary files.
func WithTempDir(dir string) ConfigOption {
	return func(c *Config) {
		c.tempDir = dir
	}
}

// WithTempPattern options pattern function to set the name pattern for temporary
// files. The last "*" is replaced by a random string, see [os.CreateTemp].
func WithTempPattern(pattern string) ConfigOption {
	return func(c *Config) {
		if len(pattern) > 0 {
			c.tempPattern = pattern
		}
	}
}
