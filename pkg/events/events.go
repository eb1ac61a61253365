package events

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/clients"
	"github.com/ovirt/ost-gotests/tests/internal/testevent"
)

// Log reads and writes the engine audit log.
type Log struct {
	apiClient *clients.Settings
}

// NewLog returns a Log over the engine connection.
func NewLog(apiClient *clients.Settings) (*Log, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("events 'apiClient' cannot be nil")
	}

	return &Log{apiClient: apiClient}, nil
}

// LastEventID returns the id of the newest event, or zero for an empty log.
func (log *Log) LastEventID(ctx context.Context) (int64, error) {
	latest, err := log.Latest(ctx, 1)
	if err != nil {
		return 0, err
	}

	if len(latest) == 0 {
		return 0, nil
	}

	return latest[0].ID, nil
}

// EventsSince returns events with an id greater than id in ascending id order.
func (log *Log) EventsSince(ctx context.Context, id int64) ([]testevent.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	response, err := log.apiClient.SystemService().EventsService().List().From(id).Send()
	if err != nil {
		return nil, fmt.Errorf("failed to list events from %d: %w", id, err)
	}

	converted, err := convert(response)
	if err != nil {
		return nil, err
	}

	after := slices.DeleteFunc(converted, func(event testevent.Event) bool {
		return event.ID <= id
	})

	slices.SortFunc(after, func(left, right testevent.Event) int {
		return cmp.Compare(left.ID, right.ID)
	})

	return after, nil
}

// Latest returns up to limit newest events, newest first.
func (log *Log) Latest(ctx context.Context, limit int64) ([]testevent.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	response, err := log.apiClient.SystemService().EventsService().List().Max(limit).Send()
	if err != nil {
		return nil, fmt.Errorf("failed to list latest events: %w", err)
	}

	converted, err := convert(response)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(converted, func(left, right testevent.Event) int {
		return cmp.Compare(right.ID, left.ID)
	})

	return converted, nil
}

// Add writes a custom event to the audit log.
func (log *Log) Add(ctx context.Context, origin string, customID int64, description string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	glog.V(100).Infof("Adding event %d from %s: %s", customID, origin, description)

	event, err := ovirtsdk4.NewEventBuilder().
		Description(description).
		Severity(ovirtsdk4.LOGSEVERITY_NORMAL).
		Origin(origin).
		CustomId(customID).
		Build()
	if err != nil {
		return err
	}

	_, err = log.apiClient.SystemService().EventsService().Add().Event(event).Send()

	return err
}

func convert(response *ovirtsdk4.EventsServiceListResponse) ([]testevent.Event, error) {
	events, ok := response.Events()
	if !ok {
		return nil, nil
	}

	converted := make([]testevent.Event, 0, len(events.Slice()))

	for _, event := range events.Slice() {
		id, err := strconv.ParseInt(event.MustId(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected event id %q: %w", event.MustId(), err)
		}

		code, _ := event.Code()
		description, _ := event.Description()

		converted = append(converted, testevent.Event{ID: id, Code: code, Description: description})
	}

	return converted, nil
}
