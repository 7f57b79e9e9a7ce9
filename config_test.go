// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/hashicorp/go-untar"
)

// TestCheckMaxFiles implements test cases
func TestCheckMaxFiles(t *testing.T) {
	// prepare test cases
	cases := []struct {
		name        string
		input       int64
		config      *untar.Config
		expectError bool
	}{
		{
			name:        "less files then maximum",
			input:       5,                                       // within limit
			config:      untar.NewConfig(untar.WithMaxFiles(10)), // 10
			expectError: false,
		},
		{
			name:        "exactly maximum",
			input:       10,                                      // at limit
			config:      untar.NewConfig(untar.WithMaxFiles(10)), // 10
			expectError: false,
		},
		{
			name:        "more files then maximum",
			input:       15,                                      // over limit
			config:      untar.NewConfig(untar.WithMaxFiles(10)), // 10
			expectError: true,
		},
		{
			name:        "disable file counter check",
			input:       5000,                                    // ignored
			config:      untar.NewConfig(untar.WithMaxFiles(-1)), // disable
			expectError: false,
		},
	}

	// run cases
	for i, tc := range cases {
		t.Run(fmt.Sprintf("tc %d", i), func(t *testing.T) {
			want := tc.expectError
			got := tc.config.CheckMaxFiles(tc.input) != nil
			if got != want {
				t.Errorf("test case %d failed: %s", i, tc.name)
			}
		})
	}
}

// TestCheckExtractionSize implements test cases
func TestCheckExtractionSize(t *testing.T) {
	cases := []struct {
		name        string
		input       int64
		config      *untar.Config
		expectError bool
	}{
		{
			name:        "within limit",
			input:       1024,
			config:      untar.NewConfig(untar.WithMaxExtractionSize(2048)),
			expectError: false,
		},
		{
			name:        "over limit",
			input:       4096,
			config:      untar.NewConfig(untar.WithMaxExtractionSize(2048)),
			expectError: true,
		},
		{
			name:        "disabled",
			input:       1 << 40,
			config:      untar.NewConfig(untar.WithMaxExtractionSize(-1)),
			expectError: false,
		},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprintf("tc %d", i), func(t *testing.T) {
			want := tc.expectError
			got := tc.config.CheckExtractionSize(tc.input) != nil
			if got != want {
				t.Errorf("test case %d failed: %s", i, tc.name)
			}
		})
	}
}

// TestWithMaxInputSize implements test cases
func TestWithMaxInputSize(t *testing.T) {
	maxInputSize := int64(1024)
	config := &untar.Config{}
	option := untar.WithMaxInputSize(maxInputSize)
	option(config)

	if config.MaxInputSize() != maxInputSize {
		t.Errorf("Expected MaxInputSize to be %d, but got %d", maxInputSize, config.MaxInputSize())
	}
}

func TestWithBufferSize(t *testing.T) {
	cases := []struct {
		input int
		want  int
	}{
		{input: 1 << 20, want: 1 << 20},
		{input: 512, want: 512},
		{input: 1, want: 512},
		{input: -1, want: 512},
	}

	for _, tc := range cases {
		if got := untar.NewConfig(untar.WithBufferSize(tc.input)).BufferSize(); got != tc.want {
			t.Errorf("WithBufferSize(%d) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestWithTempPattern(t *testing.T) {
	if got := untar.NewConfig(untar.WithTempPattern("")).TempPattern(); got != "untar-*" {
		t.Errorf("empty pattern replaced default, got %q", got)
	}
	if got := untar.NewConfig(untar.WithTempPattern("x-*.tar")).TempPattern(); got != "x-*.tar" {
		t.Errorf("TempPattern() = %q, want %q", got, "x-*.tar")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := untar.NewConfig()

	if cfg.BufferSize() != 40960 {
		t.Errorf("BufferSize() = %d", cfg.BufferSize())
	}
	if cfg.CacheInMemory() {
		t.Errorf("CacheInMemory() = true")
	}
	if !cfg.CreateDestination() {
		t.Errorf("CreateDestination() = false")
	}
	if cfg.CustomCreateDirMode() != 0750 || cfg.CustomFileMode() != 0640 {
		t.Errorf("unexpected modes %v, %v", cfg.CustomCreateDirMode(), cfg.CustomFileMode())
	}
	if cfg.DecompressedInput() || cfg.Overwrite() || cfg.TraverseSymlinks() {
		t.Errorf("unexpected flags in default config")
	}
	if cfg.ScratchFile() != nil || cfg.TempDir() != "" {
		t.Errorf("unexpected scratch settings in default config")
	}
	if cfg.Logger() == nil || cfg.TelemetryHook() == nil {
		t.Errorf("missing logger or telemetry hook")
	}
}

func TestConfigOptions(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "scratch")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	hookCalled := false
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := untar.NewConfig(
		untar.WithCacheInMemory(true),
		untar.WithCreateDestination(false),
		untar.WithCustomCreateDirMode(0700),
		untar.WithCustomFileMode(0600),
		untar.WithDecompressedInput(true),
		untar.WithInsecureTraverseSymlinks(true),
		untar.WithLogger(logger),
		untar.WithOverwrite(true),
		untar.WithScratchFile(f),
		untar.WithTelemetryHook(func(ctx context.Context, td *untar.TelemetryData) { hookCalled = true }),
		untar.WithTempDir("/var/tmp"),
	)

	if !cfg.CacheInMemory() || cfg.CreateDestination() || !cfg.DecompressedInput() || !cfg.TraverseSymlinks() || !cfg.Overwrite() {
		t.Errorf("flags not applied")
	}
	if cfg.CustomCreateDirMode() != 0700 || cfg.CustomFileMode() != 0600 {
		t.Errorf("modes not applied")
	}
	if cfg.Logger() != logger {
		t.Errorf("logger not applied")
	}
	if cfg.ScratchFile() != f || cfg.TempDir() != "/var/tmp" {
		t.Errorf("scratch settings not applied")
	}
	cfg.TelemetryHook()(context.Background(), &untar.TelemetryData{})
	if !hookCalled {
		t.Errorf("telemetry hook not applied")
	}
}
