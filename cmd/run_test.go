// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArchive stores a tar archive with a single file in dir
func writeArchive(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "a.txt", Typeflag: tar.TypeReg, Size: 5, Mode: 0644}))
	_, err := tw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	path := filepath.Join(dir, "archive.tar")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

// defaultCLI mirrors the defaults of the cli parameters
func defaultCLI(archive, dst string) *CLI {
	return &CLI{
		Archive:           archive,
		BufferSize:        40960,
		CreateDestination: true,
		Destination:       dst,
		MaxFiles:          100000,
		MaxExtractionSize: 1 << 30,
		MaxExtractionTime: 60,
		MaxInputSize:      1 << 30,
	}
}

func TestRun(t *testing.T) {
	tmp := t.TempDir()
	dst := filepath.Join(tmp, "out")
	cli := defaultCLI(writeArchive(t, tmp), dst)
	cli.Metrics = true

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))

	require.NoError(t, cli.run(context.Background(), logger))
	got, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.True(t, strings.Contains(logs.String(), "extraction finished"), logs.String())
}

func TestRunErrors(t *testing.T) {
	tmp := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name string
		cli  *CLI
	}{
		{
			name: "missing archive",
			cli:  defaultCLI(filepath.Join(tmp, "missing.tar"), tmp),
		},
		{
			name: "missing destination",
			cli: func() *CLI {
				c := defaultCLI(writeArchive(t, tmp), filepath.Join(tmp, "missing"))
				c.CreateDestination = false
				return c
			}(),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Error(t, test.cli.run(context.Background(), logger))
		})
	}
}
