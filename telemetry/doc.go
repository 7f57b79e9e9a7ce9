// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package telemetry provides hooks that consume the [untar.TelemetryData] of an
// extraction, e.g. to write it to a log or to publish it to Amazon EventBridge.
package telemetry
