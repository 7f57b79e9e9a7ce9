// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchevents"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchevents/types"
	"github.com/hashicorp/go-untar"
	"github.com/pkg/errors"
)

const (
	// EventSource is the source of published extraction events.
	EventSource = "go-untar"

	// EventDetailType is the detail type of published extraction events.
	EventDetailType = "Extraction Finished"
)

// EventsAPI is the part of the [cloudwatchevents.Client] that is used to publish events.
type EventsAPI interface {
	PutEvents(ctx context.Context, params *cloudwatchevents.PutEventsInput, optFns ...func(*cloudwatchevents.Options)) (*cloudwatchevents.PutEventsOutput, error)
}

// NewCloudWatchEventsHook returns a hook that publishes the telemetry data of
// every extraction as an event to bus. Errors are passed to onError, which may be nil.
func NewCloudWatchEventsHook(client EventsAPI, bus string, onError func(error)) untar.TelemetryHook {
	return func(ctx context.Context, td *untar.TelemetryData) {
		// the extraction context might be canceled already
		if err := PublishEvent(context.WithoutCancel(ctx), client, bus, td); err != nil && onError != nil {
			onError(err)
		}
	}
}

// PublishEvent sends td as a single event to bus.
func PublishEvent(ctx context.Context, client EventsAPI, bus string, td *untar.TelemetryData) error {
	detail, err := json.Marshal(td)
	if err != nil {
		return errors.Wrap(err, "cannot encode telemetry data")
	}

	out, err := client.PutEvents(ctx, &cloudwatchevents.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				Detail:       aws.String(string(detail)),
				DetailType:   aws.String(EventDetailType),
				EventBusName: aws.String(bus),
				Source:       aws.String(EventSource),
			},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "cannot put event to bus %s", bus)
	}

	// a rejected entry does not fail the request itself
	for _, entry := range out.Entries {
		if entry.ErrorCode != nil {
			return errors.Errorf("event rejected by bus %s: %s: %s", bus, aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
		}
	}
	return nil
}
