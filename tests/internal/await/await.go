package await

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	// DefaultInterval is the delay between two probe calls.
	DefaultInterval = 3 * time.Second
	// DefaultShortTimeout bounds operations the platform completes quickly.
	DefaultShortTimeout = 3 * time.Minute
	// DefaultLongTimeout bounds slow operations such as storage activation.
	DefaultLongTimeout = 10 * time.Minute
)

// Probe is a side-effect-free check of platform state.
type Probe func(ctx context.Context) (bool, error)

// TimeoutError is returned when the probe did not hold before the budget elapsed.
type TimeoutError struct {
	Timeout    time.Duration
	Calls      int
	LastResult bool
	LastErr    error
}

// Error implements error.
func (e *TimeoutError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("condition not met within %s after %d calls, last error: %v", e.Timeout, e.Calls, e.LastErr)
	}

	return fmt.Sprintf("condition not met within %s after %d calls", e.Timeout, e.Calls)
}

// Unwrap returns the last probe error.
func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// Option customizes a single wait.
type Option func(*options)

type options struct {
	terminal func(error) bool
}

// WithTerminal makes probe errors matched by isTerminal stop polling immediately. By default every probe error is
// treated as transient.
func WithTerminal(isTerminal func(error) bool) Option {
	return func(opts *options) {
		opts.terminal = isTerminal
	}
}

// TrueWithin calls probe right away and then every interval until it returns true, a terminal error is returned or
// timeout elapses. The probe is not called again once it has returned true.
func TrueWithin(ctx context.Context, interval, timeout time.Duration, probe Probe, opts ...Option) error {
	var settings options

	for _, opt := range opts {
		opt(&settings)
	}

	var (
		calls       int
		lastResult  bool
		lastErr     error
		terminalErr error
	)

	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		calls++

		lastResult, lastErr = probe(ctx)
		if lastErr != nil {
			if settings.terminal != nil && settings.terminal(lastErr) {
				terminalErr = lastErr

				return false, lastErr
			}

			glog.V(100).Infof("Probe call %d failed, retrying: %v", calls, lastErr)

			return false, nil
		}

		return lastResult, nil
	})

	switch {
	case err == nil:
		return nil
	case terminalErr != nil:
		return terminalErr
	case ctx.Err() != nil:
		return fmt.Errorf("wait interrupted after %d calls: %w", calls, ctx.Err())
	default:
		return &TimeoutError{Timeout: timeout, Calls: calls, LastResult: lastResult, LastErr: lastErr}
	}
}

// Waiter carries the interval and the two timeout classes of a deployment.
type Waiter struct {
	Interval time.Duration
	Short    time.Duration
	Long     time.Duration
}

// NewWaiter returns a Waiter. Zero durations fall back to the package defaults.
func NewWaiter(interval, short, long time.Duration) *Waiter {
	waiter := &Waiter{Interval: interval, Short: short, Long: long}

	if waiter.Interval <= 0 {
		waiter.Interval = DefaultInterval
	}

	if waiter.Short <= 0 {
		waiter.Short = DefaultShortTimeout
	}

	if waiter.Long <= 0 {
		waiter.Long = DefaultLongTimeout
	}

	return waiter
}

// DefaultWaiter returns a Waiter with the package defaults.
func DefaultWaiter() *Waiter {
	return NewWaiter(0, 0, 0)
}

// TrueWithinShort waits for probe using the short timeout.
func (waiter *Waiter) TrueWithinShort(ctx context.Context, probe Probe, opts ...Option) error {
	return TrueWithin(ctx, waiter.Interval, waiter.Short, probe, opts...)
}

// TrueWithinLong waits for probe using the long timeout.
func (waiter *Waiter) TrueWithinLong(ctx context.Context, probe Probe, opts ...Option) error {
	return TrueWithin(ctx, waiter.Interval, waiter.Long, probe, opts...)
}

// Attempts calls probe up to attempts times, sleeping between calls, and returns as soon as it holds. When every
// attempt is used it returns the last observation and the last probe error.
func Attempts(ctx context.Context, attempts int, sleep time.Duration, probe Probe) (bool, error) {
	if attempts < 1 {
		return false, fmt.Errorf("attempts must be positive, got %d", attempts)
	}

	var (
		lastResult bool
		lastErr    error
	)

	backoff := wait.Backoff{Duration: sleep, Factor: 1, Steps: attempts}

	err := wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		lastResult, lastErr = probe(ctx)

		return lastErr == nil && lastResult, nil
	})

	if err != nil && ctx.Err() != nil {
		return lastResult, ctx.Err()
	}

	return lastResult, lastErr
}
