package spacetrack

import (
	"context"
	"fmt"
)

// Future is the pending result of an AsyncClient call.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn in a new goroutine and returns its future.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		f.value, f.err = fn(ctx)
	}()

	return f
}

// Done is closed once the call finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the call finished or ctx is done. Giving up on Wait
// does not cancel the call; cancel the context the call was started with.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T

		return zero, fmt.Errorf("waiting for result: %w", ctx.Err())
	}
}

// Get blocks until the call finished.
func (f *Future[T]) Get() (T, error) {
	<-f.done

	return f.value, f.err
}
