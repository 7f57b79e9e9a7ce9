// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"context"

	"github.com/hashicorp/go-untar"
)

// NoopTelemetryHook is a no operation telemetry hook.
func NoopTelemetryHook(ctx context.Context, d *untar.TelemetryData) {
	// noop
}
