// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"context"
	"log/slog"

	"github.com/hashicorp/go-untar"
)

// NewLogHook returns a hook that writes the telemetry data to l.
func NewLogHook(l *slog.Logger) untar.TelemetryHook {
	return func(ctx context.Context, td *untar.TelemetryData) {
		l.InfoContext(ctx, "extraction finished", "telemetry", td.String())
	}
}

// Chain returns a hook that calls all hooks in order.
func Chain(hooks ...untar.TelemetryHook) untar.TelemetryHook {
	return func(ctx context.Context, td *untar.TelemetryData) {
		for _, hook := range hooks {
			if hook != nil {
				hook(ctx, td)
			}
		}
	}
}
