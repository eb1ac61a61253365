package testevent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ovirt/ost-gotests/tests/internal/await"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testInterval = 5 * time.Millisecond
	testTimeout  = 100 * time.Millisecond
)

type fakeSource struct {
	mu        sync.Mutex
	events    []Event
	lastErr   error
	sinceErr  error
	sinceHits int
}

func (source *fakeSource) LastEventID(context.Context) (int64, error) {
	source.mu.Lock()
	defer source.mu.Unlock()

	if source.lastErr != nil {
		return 0, source.lastErr
	}

	if len(source.events) == 0 {
		return 0, nil
	}

	return source.events[len(source.events)-1].ID, nil
}

func (source *fakeSource) EventsSince(_ context.Context, id int64) ([]Event, error) {
	source.mu.Lock()
	defer source.mu.Unlock()

	source.sinceHits++

	if source.sinceErr != nil {
		return nil, source.sinceErr
	}

	var events []Event

	for _, event := range source.events {
		if event.ID > id {
			events = append(events, event)
		}
	}

	return events, nil
}

func (source *fakeSource) log(codes ...int64) {
	source.mu.Lock()
	defer source.mu.Unlock()

	for _, code := range codes {
		source.events = append(source.events, Event{ID: int64(len(source.events) + 1), Code: code})
	}
}

func fastOptions() []Option {
	return []Option{WithInterval(testInterval), WithTimeout(testTimeout)}
}

func TestWithinAllCodesLogged(t *testing.T) {
	source := &fakeSource{}
	source.log(1, 2, 3)

	err := Within(context.TODO(), source, []int64{966, 962}, func(context.Context) error {
		source.log(962, 10, 966)

		return nil
	}, fastOptions()...)

	assert.NoError(t, err)
}

func TestWithinIgnoresEventsBeforeWatermark(t *testing.T) {
	source := &fakeSource{}
	source.log(950)

	err := Within(context.TODO(), source, []int64{950}, func(context.Context) error {
		source.log(1)

		return nil
	}, fastOptions()...)

	var missingErr *MissingCodesError

	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, int64(1), missingErr.Watermark)
	assert.Equal(t, []int64{950}, missingErr.Missing)
}

func TestWithinNamesMissingCodes(t *testing.T) {
	source := &fakeSource{}

	err := Within(context.TODO(), source, []int64{884, 885}, func(context.Context) error {
		source.log(884)

		return nil
	}, fastOptions()...)

	var missingErr *MissingCodesError

	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, []int64{885}, missingErr.Missing)
	assert.Contains(t, err.Error(), "885")
}

func TestWithinWaitsForLateEvents(t *testing.T) {
	source := &fakeSource{}

	err := Within(context.TODO(), source, []int64{42}, func(context.Context) error {
		go func() {
			time.Sleep(3 * testInterval)
			source.log(42)
		}()

		return nil
	}, WithInterval(testInterval), WithTimeout(time.Second))

	assert.NoError(t, err)
}

func TestWithinActionFailureSkipsVerification(t *testing.T) {
	source := &fakeSource{}
	failure := errors.New("add failed")

	err := Within(context.TODO(), source, []int64{950}, func(context.Context) error {
		return failure
	}, fastOptions()...)

	assert.Same(t, failure, err)
	assert.Zero(t, source.sinceHits)
}

func TestWithinWatermarkError(t *testing.T) {
	source := &fakeSource{lastErr: errors.New("unauthorized")}
	ran := false

	err := Within(context.TODO(), source, []int64{950}, func(context.Context) error {
		ran = true

		return nil
	}, fastOptions()...)

	assert.ErrorIs(t, err, source.lastErr)
	assert.False(t, ran)
}

func TestBeginValidation(t *testing.T) {
	_, err := Begin(context.TODO(), nil, []int64{1})
	assert.Error(t, err)

	_, err = Begin(context.TODO(), &fakeSource{}, nil)
	assert.Error(t, err)
}

func TestBeginDefaults(t *testing.T) {
	watermark, err := Begin(context.TODO(), &fakeSource{}, []int64{1})

	require.NoError(t, err)
	assert.Equal(t, await.DefaultLongTimeout, watermark.timeout)
	assert.Equal(t, await.DefaultInterval, watermark.interval)

	waiter := await.NewWaiter(time.Second, time.Minute, 2*time.Minute)
	watermark, err = Begin(context.TODO(), &fakeSource{}, []int64{1}, WithWaiter(waiter))

	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, watermark.timeout)
	assert.Equal(t, time.Second, watermark.interval)
}

func TestVerifyTransientSourceErrors(t *testing.T) {
	source := &fakeSource{sinceErr: errors.New("timeout")}

	watermark, err := Begin(context.TODO(), source, []int64{1}, fastOptions()...)
	require.NoError(t, err)

	err = watermark.Verify(context.TODO())

	var missingErr *MissingCodesError

	require.ErrorAs(t, err, &missingErr)
	assert.Greater(t, source.sinceHits, 1)
}

func TestVerifyKeepsSourceFailure(t *testing.T) {
	sourceErr := errors.New("engine unreachable")
	source := &fakeSource{sinceErr: sourceErr}

	watermark, err := Begin(context.TODO(), source, []int64{998}, fastOptions()...)
	require.NoError(t, err)

	err = watermark.Verify(context.TODO())

	var (
		missingErr *MissingCodesError
		timeoutErr *await.TimeoutError
	)

	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, []int64{998}, missingErr.Missing)
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, sourceErr, timeoutErr.LastErr)
	assert.ErrorIs(t, err, sourceErr)
	assert.Contains(t, err.Error(), "engine unreachable")
}

func TestMissing(t *testing.T) {
	events := []Event{{ID: 4, Code: 1}, {ID: 5, Code: 2}, {ID: 6, Code: 2}}

	assert.Empty(t, Missing([]int64{1, 2}, 3, events))
	assert.Equal(t, []int64{1}, Missing([]int64{1, 2}, 4, events))
	assert.Equal(t, []int64{3}, Missing([]int64{3, 3}, 0, events))
}
