package await

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// State is the position of a Confirmer.
type State int

const (
	// NotSeen means the last observation was negative or nothing was observed yet.
	NotSeen State = iota
	// SeenOnce means a single positive observation has not been confirmed yet.
	SeenOnce
	// Confirmed means two consecutive positive observations were made.
	Confirmed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case NotSeen:
		return "not-seen"
	case SeenOnce:
		return "seen-once"
	case Confirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Confirmer filters flapping conditions by requiring two consecutive positive observations. A negative observation
// after a single positive one starts over. Confirmed is final.
type Confirmer struct {
	state State
}

// Observe feeds one observation and returns the resulting state.
func (confirmer *Confirmer) Observe(holds bool) State {
	switch confirmer.state {
	case NotSeen:
		if holds {
			confirmer.state = SeenOnce
		}
	case SeenOnce:
		if holds {
			confirmer.state = Confirmed
		} else {
			confirmer.state = NotSeen
		}
	case Confirmed:
	}

	return confirmer.state
}

// State returns the current state.
func (confirmer *Confirmer) State() State {
	return confirmer.state
}

// ConfirmedWithin polls probe like TrueWithin but only succeeds after two consecutive positive results. A probe
// error counts as a negative observation.
func ConfirmedWithin(ctx context.Context, interval, timeout time.Duration, probe Probe, opts ...Option) error {
	var confirmer Confirmer

	return TrueWithin(ctx, interval, timeout, func(ctx context.Context) (bool, error) {
		holds, err := probe(ctx)

		state := confirmer.Observe(err == nil && holds)
		glog.V(100).Infof("Confirmation state is %s", state)

		if err != nil {
			return false, err
		}

		return state == Confirmed, nil
	}, opts...)
}
