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

func TestConfirmerObserve(t *testing.T) {
	testCases := []struct {
		name         string
		observations []bool
		expected     State
	}{
		{name: "nothing observed", observations: nil, expected: NotSeen},
		{name: "single positive", observations: []bool{true}, expected: SeenOnce},
		{name: "two positives", observations: []bool{true, true}, expected: Confirmed},
		{name: "flap resets", observations: []bool{true, false}, expected: NotSeen},
		{name: "flap then two positives", observations: []bool{true, false, true, true}, expected: Confirmed},
		{name: "alternating never confirms", observations: []bool{true, false, true, false, true}, expected: SeenOnce},
		{name: "confirmed is final", observations: []bool{true, true, false, false}, expected: Confirmed},
		{name: "negatives stay not seen", observations: []bool{false, false}, expected: NotSeen},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var confirmer Confirmer

			for _, observation := range testCase.observations {
				confirmer.Observe(observation)
			}

			assert.Equal(t, testCase.expected, confirmer.State())
		})
	}
}

func TestConfirmedWithin(t *testing.T) {
	var calls atomic.Int32

	err := ConfirmedWithin(context.TODO(), testInterval, time.Second,
		sequenceProbe(&calls, true, false, true, true, false))

	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestConfirmedWithinFlappingTimesOut(t *testing.T) {
	var calls atomic.Int32

	flapping := func(context.Context) (bool, error) {
		return calls.Add(1)%2 == 1, nil
	}

	err := ConfirmedWithin(context.TODO(), testInterval, testTimeout, flapping)

	var timeoutErr *TimeoutError

	assert.ErrorAs(t, err, &timeoutErr)
}

func TestConfirmedWithinErrorResets(t *testing.T) {
	var calls atomic.Int32

	probe := func(context.Context) (bool, error) {
		switch calls.Add(1) {
		case 2:
			return false, errors.New("transient")
		default:
			return true, nil
		}
	}

	err := ConfirmedWithin(context.TODO(), testInterval, time.Second, probe)

	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not-seen", NotSeen.String())
	assert.Equal(t, "seen-once", SeenOnce.String())
	assert.Equal(t, "confirmed", Confirmed.String())
}
