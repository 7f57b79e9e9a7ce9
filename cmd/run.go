// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchevents"
	"github.com/hashicorp/go-untar"
	"github.com/hashicorp/go-untar/telemetry"
	"github.com/pkg/errors"
)

// CLI are the cli parameters for untar binary
type CLI struct {
	Archive           string           `arg:"" name:"archive" help:"Path to archive. (\"-\" for STDIN)"`
	BufferSize        int              `optional:"" default:"40960" help:"Size of the copy buffer (in bytes)."`
	CacheInMemory     bool             `optional:"" help:"Keep the seekable copy of compressed or non-seekable input in memory."`
	CreateDestination bool             `short:"c" default:"true" negatable:"" help:"Create destination directory if it does not exist."`
	Destination       string           `arg:"" name:"destination" default:"." help:"Output directory."`
	EventBus          string           `optional:"" help:"Publish telemetry data to this Amazon EventBridge bus."`
	FollowSymlinks    bool             `short:"F" help:"[Dangerous!] Follow symlinks to directories during extraction."`
	MaxFiles          int64            `optional:"" default:"100000" help:"Maximum entries that are processed before stop. (disable check: -1)"`
	MaxExtractionSize int64            `optional:"" default:"1073741824" help:"Maximum extraction size that allowed is (in bytes). (disable check: -1)"`
	MaxExtractionTime int64            `optional:"" default:"60" help:"Maximum time that an extraction should take (in seconds). (disable check: -1)"`
	MaxInputSize      int64            `optional:"" default:"1073741824" help:"Maximum input size that allowed is (in bytes). (disable check: -1)"`
	Metrics           bool             `short:"M" optional:"" default:"false" help:"Print telemetry data to log after extraction."`
	Overwrite         bool             `short:"O" help:"Overwrite if exist."`
	TempDir           string           `optional:"" type:"existingdir" help:"Directory for temporary files."`
	Verbose           bool             `short:"v" optional:"" help:"Verbose logging."`
	Version           kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// Run the entrypoint into go-untar as a cli tool
func Run(version, commit, date string) {
	var cli CLI
	kong.Parse(&cli,
		kong.Description("A tar extraction utility with transparent decompression"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// Check for verbose output
	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	} else if cli.Metrics {
		logLevel = slog.LevelInfo
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if err := cli.run(context.Background(), logger); err != nil {
		logger.Error("extraction failed", "error", err)
		os.Exit(-1)
	}
}

// run performs the extraction configured by the cli parameters.
func (cli *CLI) run(ctx context.Context, logger *slog.Logger) error {
	hook, err := cli.telemetryHook(ctx, logger)
	if err != nil {
		return err
	}

	// process cli params
	cfg := untar.NewConfig(
		untar.WithBufferSize(cli.BufferSize),
		untar.WithCacheInMemory(cli.CacheInMemory),
		untar.WithCreateDestination(cli.CreateDestination),
		untar.WithInsecureTraverseSymlinks(cli.FollowSymlinks),
		untar.WithLogger(logger),
		untar.WithMaxExtractionSize(cli.MaxExtractionSize),
		untar.WithMaxFiles(cli.MaxFiles),
		untar.WithMaxInputSize(cli.MaxInputSize),
		untar.WithOverwrite(cli.Overwrite),
		untar.WithTelemetryHook(hook),
		untar.WithTempDir(cli.TempDir),
	)

	// open archive, ownership passes to the extraction
	var archive io.Reader
	if cli.Archive == "-" {
		archive = bufio.NewReader(os.Stdin)
	} else {
		f, err := os.Open(cli.Archive)
		if err != nil {
			return errors.Wrap(err, "opening archive failed")
		}
		archive = f
	}

	if cli.MaxExtractionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second*time.Duration(cli.MaxExtractionTime))
		defer cancel()
	}

	// extract archive
	if err := untar.Unpack(ctx, archive, cli.Destination, cfg); err != nil {
		return errors.Wrap(err, "error during extraction")
	}
	return nil
}

// telemetryHook assembles the telemetry hooks that are selected by the cli parameters.
func (cli *CLI) telemetryHook(ctx context.Context, logger *slog.Logger) (untar.TelemetryHook, error) {
	var hooks []untar.TelemetryHook
	if cli.Metrics {
		hooks = append(hooks, telemetry.NewLogHook(logger))
	}
	if len(cli.EventBus) > 0 {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "cannot load aws configuration")
		}
		onError := func(err error) {
			logger.Warn("cannot publish telemetry data", "bus", cli.EventBus, "error", err)
		}
		hooks = append(hooks, telemetry.NewCloudWatchEventsHook(cloudwatchevents.NewFromConfig(awsCfg), cli.EventBus, onError))
	}
	return telemetry.Chain(hooks...), nil
}
