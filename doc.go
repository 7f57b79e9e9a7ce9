// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package untar extracts tar archives from a stream to a destination directory.
//
// The compression of the stream (gzip, bzip2, xz, zstd or lz4) is detected from its
// leading bytes. Compressed and non-seekable input is copied into a seekable scratch
// resource, a temporary file by default, which is removed once the extraction ends.
// Directories and regular files are extracted, while links, devices and metadata
// entries are skipped.
//
// Configuration is done using the [Config], which sets limits, the logger, the
// telemetry hook and the handling of existing files. [TelemetryData] is captured
// during the extraction process and passed to the [TelemetryHook].
package untar
