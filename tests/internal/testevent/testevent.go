package testevent

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/golang/glog"
	"github.com/ovirt/ost-gotests/tests/internal/await"
)

// Event is a single entry of the engine audit log.
type Event struct {
	ID          int64
	Code        int64
	Description string
}

// Source reads the engine audit log.
type Source interface {
	// LastEventID returns the id of the newest event or zero when the log is empty.
	LastEventID(ctx context.Context) (int64, error)
	// EventsSince returns the events with an id strictly greater than id.
	EventsSince(ctx context.Context, id int64) ([]Event, error)
}

// MissingCodesError is returned when some expected codes were not logged after the watermark.
type MissingCodesError struct {
	Watermark int64
	Missing   []int64
	// Cause is the wait failure that ended verification, usually an *await.TimeoutError.
	Cause error
}

// Error implements error.
func (e *MissingCodesError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("events %v were not logged after event %d: %v", e.Missing, e.Watermark, e.Cause)
	}

	return fmt.Sprintf("events %v were not logged after event %d", e.Missing, e.Watermark)
}

// Unwrap returns the wait failure.
func (e *MissingCodesError) Unwrap() error {
	return e.Cause
}

// Option customizes verification.
type Option func(*Watermark)

// WithTimeout replaces the verification timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(watermark *Watermark) {
		watermark.timeout = timeout
	}
}

// WithInterval replaces the verification poll interval.
func WithInterval(interval time.Duration) Option {
	return func(watermark *Watermark) {
		watermark.interval = interval
	}
}

// WithWaiter takes interval and timeout from waiter, using its long timeout class.
func WithWaiter(waiter *await.Waiter) Option {
	return func(watermark *Watermark) {
		watermark.interval = waiter.Interval
		watermark.timeout = waiter.Long
	}
}

// Watermark is the newest event id seen before an action together with the codes the action must produce.
type Watermark struct {
	ID       int64
	Codes    []int64
	source   Source
	interval time.Duration
	timeout  time.Duration
}

// Begin records the current watermark of source.
func Begin(ctx context.Context, source Source, codes []int64, opts ...Option) (*Watermark, error) {
	if source == nil {
		return nil, fmt.Errorf("event source cannot be nil")
	}

	if len(codes) == 0 {
		return nil, fmt.Errorf("at least one event code is required")
	}

	lastID, err := source.LastEventID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read last event id: %w", err)
	}

	watermark := &Watermark{
		ID:       lastID,
		Codes:    slices.Clone(codes),
		source:   source,
		interval: await.DefaultInterval,
		timeout:  await.DefaultLongTimeout,
	}

	for _, opt := range opts {
		opt(watermark)
	}

	glog.V(100).Infof("Expecting events %v after event %d", watermark.Codes, watermark.ID)

	return watermark, nil
}

// Verify waits until every expected code was logged after the watermark. Order does not matter.
func (watermark *Watermark) Verify(ctx context.Context) error {
	missing := slices.Clone(watermark.Codes)

	err := await.TrueWithin(ctx, watermark.interval, watermark.timeout, func(ctx context.Context) (bool, error) {
		events, err := watermark.source.EventsSince(ctx, watermark.ID)
		if err != nil {
			return false, err
		}

		missing = Missing(watermark.Codes, watermark.ID, events)

		return len(missing) == 0, nil
	})

	if err == nil {
		glog.V(100).Infof("Events %v logged after event %d", watermark.Codes, watermark.ID)

		return nil
	}

	if ctx.Err() != nil {
		return err
	}

	return &MissingCodesError{Watermark: watermark.ID, Missing: missing, Cause: err}
}

// Within records the watermark, runs action and verifies the codes only when action succeeded. An action error is
// returned unchanged and no verification happens.
func Within(ctx context.Context, source Source, codes []int64, action func(ctx context.Context) error,
	opts ...Option) error {
	watermark, err := Begin(ctx, source, codes, opts...)
	if err != nil {
		return err
	}

	if err := action(ctx); err != nil {
		return err
	}

	return watermark.Verify(ctx)
}

// Missing returns the codes that do not appear among the events newer than watermark, keeping the order of codes.
func Missing(codes []int64, watermark int64, events []Event) []int64 {
	seen := make(map[int64]bool)

	for _, event := range events {
		if event.ID > watermark {
			seen[event.Code] = true
		}
	}

	var missing []int64

	for _, code := range codes {
		if !seen[code] && !slices.Contains(missing, code) {
			missing = append(missing, code)
		}
	}

	return missing
}
