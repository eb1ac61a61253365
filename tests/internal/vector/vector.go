package vector

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/client-go/util/workqueue"
)

// Func is a callable dispatched by Run.
type Func[T any] func(ctx context.Context) (T, error)

// Run calls every fn concurrently and waits for all of them, including after a failure. Results keep the input
// order. The returned error aggregates the error of every failed call, each prefixed with its index.
func Run[T any](ctx context.Context, fns ...Func[T]) ([]T, error) {
	results := make([]T, len(fns))
	errs := make([]error, len(fns))
	started := make([]bool, len(fns))

	glog.V(100).Infof("Dispatching %d calls", len(fns))

	workqueue.ParallelizeUntil(ctx, len(fns), len(fns), func(index int) {
		started[index] = true

		result, err := fns[index](ctx)
		if err != nil {
			errs[index] = fmt.Errorf("call %d: %w", index, err)

			return
		}

		results[index] = result
	})

	for index, ran := range started {
		if !ran {
			errs[index] = fmt.Errorf("call %d: not started: %w", index, context.Cause(ctx))
		}
	}

	return results, utilerrors.NewAggregate(errs)
}

// RunAll is Run for callables without a result.
func RunAll(ctx context.Context, fns ...func(ctx context.Context) error) error {
	wrapped := make([]Func[struct{}], 0, len(fns))

	for _, fn := range fns {
		wrapped = append(wrapped, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx)
		})
	}

	_, err := Run(ctx, wrapped...)

	return err
}

// Map runs fn once per item concurrently. It is Run over a slice of inputs.
func Map[I, T any](ctx context.Context, items []I, fn func(ctx context.Context, item I) (T, error)) ([]T, error) {
	fns := make([]Func[T], 0, len(items))

	for _, item := range items {
		fns = append(fns, func(ctx context.Context) (T, error) {
			return fn(ctx, item)
		})
	}

	return Run(ctx, fns...)
}
