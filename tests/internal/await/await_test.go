package await

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testInterval = 5 * time.Millisecond
	testTimeout  = 100 * time.Millisecond
)

// sequenceProbe returns the given results in order and repeats the last one afterwards.
func sequenceProbe(calls *atomic.Int32, results ...bool) Probe {
	return func(context.Context) (bool, error) {
		call := int(calls.Add(1)) - 1
		if call >= len(results) {
			return results[len(results)-1], nil
		}

		return results[call], nil
	}
}

func TestTrueWithinImmediate(t *testing.T) {
	var calls atomic.Int32

	err := TrueWithin(context.TODO(), time.Hour, time.Hour, sequenceProbe(&calls, true))

	assert.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTrueWithinStopsAfterTrue(t *testing.T) {
	var calls atomic.Int32

	err := TrueWithin(context.TODO(), testInterval, time.Second, sequenceProbe(&calls, false, false, true, false))

	require.NoError(t, err)

	time.Sleep(5 * testInterval)

	assert.Equal(t, int32(3), calls.Load())
}

func TestTrueWithinTimeout(t *testing.T) {
	var calls atomic.Int32

	start := time.Now()
	err := TrueWithin(context.TODO(), testInterval, testTimeout, sequenceProbe(&calls, false))
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError

	require.ErrorAs(t, err, &timeoutErr)
	assert.GreaterOrEqual(t, elapsed, testTimeout)
	assert.Equal(t, testTimeout, timeoutErr.Timeout)
	assert.False(t, timeoutErr.LastResult)
	assert.NoError(t, timeoutErr.LastErr)
	assert.Equal(t, int(calls.Load()), timeoutErr.Calls)
	assert.Greater(t, timeoutErr.Calls, 1)
}

func TestTrueWithinTransientErrors(t *testing.T) {
	var calls atomic.Int32

	transient := errors.New("connection refused")

	err := TrueWithin(context.TODO(), testInterval, time.Second, func(context.Context) (bool, error) {
		if calls.Add(1) < 3 {
			return false, transient
		}

		return true, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTrueWithinTimeoutKeepsLastError(t *testing.T) {
	transient := errors.New("connection refused")

	err := TrueWithin(context.TODO(), testInterval, testTimeout, func(context.Context) (bool, error) {
		return false, transient
	})

	var timeoutErr *TimeoutError

	require.ErrorAs(t, err, &timeoutErr)
	assert.ErrorIs(t, err, transient)
}

func TestTrueWithinTerminalError(t *testing.T) {
	var calls atomic.Int32

	terminal := errors.New("not found")

	start := time.Now()
	err := TrueWithin(context.TODO(), testInterval, time.Minute, func(context.Context) (bool, error) {
		calls.Add(1)

		return false, terminal
	}, WithTerminal(func(err error) bool { return errors.Is(err, terminal) }))

	assert.Same(t, terminal, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Less(t, time.Since(start), time.Minute)
}

func TestTrueWithinCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.TODO())

	go func() {
		time.Sleep(2 * testInterval)
		cancel()
	}()

	err := TrueWithin(ctx, testInterval, time.Minute, func(context.Context) (bool, error) {
		return false, nil
	})

	var timeoutErr *TimeoutError

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.As(err, &timeoutErr))
}

func TestWaiterDefaults(t *testing.T) {
	waiter := DefaultWaiter()

	assert.Equal(t, DefaultInterval, waiter.Interval)
	assert.Equal(t, DefaultShortTimeout, waiter.Short)
	assert.Equal(t, DefaultLongTimeout, waiter.Long)

	custom := NewWaiter(time.Second, time.Minute, 0)

	assert.Equal(t, time.Second, custom.Interval)
	assert.Equal(t, time.Minute, custom.Short)
	assert.Equal(t, DefaultLongTimeout, custom.Long)
}

func TestWaiterClasses(t *testing.T) {
	waiter := NewWaiter(testInterval, testTimeout, 2*testTimeout)

	var shortErr, longErr *TimeoutError

	never := func(context.Context) (bool, error) { return false, nil }

	require.ErrorAs(t, waiter.TrueWithinShort(context.TODO(), never), &shortErr)
	require.ErrorAs(t, waiter.TrueWithinLong(context.TODO(), never), &longErr)
	assert.Equal(t, testTimeout, shortErr.Timeout)
	assert.Equal(t, 2*testTimeout, longErr.Timeout)
}

func TestAttempts(t *testing.T) {
	var calls atomic.Int32

	holds, err := Attempts(context.TODO(), 3, time.Millisecond, sequenceProbe(&calls, false))

	assert.NoError(t, err)
	assert.False(t, holds)
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(0)

	holds, err = Attempts(context.TODO(), 5, time.Millisecond, sequenceProbe(&calls, false, true))

	assert.NoError(t, err)
	assert.True(t, holds)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAttemptsReturnsLastError(t *testing.T) {
	failure := errors.New("unreachable")

	holds, err := Attempts(context.TODO(), 2, time.Millisecond, func(context.Context) (bool, error) {
		return false, failure
	})

	assert.False(t, holds)
	assert.Same(t, failure, err)
}

func TestAttemptsRejectsZero(t *testing.T) {
	_, err := Attempts(context.TODO(), 0, time.Millisecond, func(context.Context) (bool, error) { return true, nil })

	assert.Error(t, err)
}
