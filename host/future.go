package host

import (
	"context"
	"fmt"
)

// Future is the result of an operation that completes after the command's
// synchronous phase. Its value is a plain Go value (see ToGo).
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Go runs fn on its own goroutine and returns a Future for its result.
// fn receives ctx detached from cancellation, so abandoning the future
// never aborts the underlying operation.
func Go(ctx context.Context, fn func(context.Context) (any, error)) *Future {
	f := &Future{done: make(chan struct{})}
	opCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("panic: %v", r)
			}
		}()
		f.value, f.err = fn(opCtx)
	}()
	return f
}

// Resolved returns a completed Future holding v.
func Resolved(v any) *Future {
	f := &Future{done: make(chan struct{}), value: v}
	close(f.done)
	return f
}

// Rejected returns a completed Future holding err.
func Rejected(err error) *Future {
	f := &Future{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done. A ctx error
// leaves the operation running.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
