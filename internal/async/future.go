// Package async runs multi-step workflows off the caller's goroutine and
// hands back a Future that resolves exactly once to either a value or an
// error.
package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Result is the outcome of a Future.
type Result[T any] struct {
	Value T
	Err   error
}

// Future is a single-assignment result of an asynchronous operation.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	res  Result[T]
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Go starts fn on a new goroutine and returns its Future.
//
// The context passed to fn keeps the values of ctx but is not cancelled
// with it: a started workflow always runs to completion or failure, and a
// caller that is no longer interested simply stops waiting. A panic in fn
// resolves the Future with an error.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	wctx := context.WithoutCancel(ctx)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				var zero T
				f.resolve(zero, fmt.Errorf("async: panic: %v\n%s", p, debug.Stack()))
			}
		}()
		v, err := fn(wctx)
		f.resolve(v, err)
	}()

	return f
}

// Resolved returns an already completed Future.
func Resolved[T any](v T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(v, err)
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.res = Result[T]{Value: v, Err: err}
		close(f.done)
	})
}

// Done is closed once the Future has resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future resolves or ctx is done. Abandoning the wait
// does not stop the underlying operation.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.res.Value, f.res.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome and true if the Future has resolved.
func (f *Future[T]) Result() (Result[T], bool) {
	select {
	case <-f.done:
		return f.res, true
	default:
		return Result[T]{}, false
	}
}

// Then registers continuations. Exactly one of success or failure is called,
// exactly once, on a separate goroutine. Nil continuations are skipped.
func (f *Future[T]) Then(success func(T), failure func(error)) {
	go func() {
		<-f.done
		if f.res.Err != nil {
			if failure != nil {
				failure(f.res.Err)
			}
			return
		}
		if success != nil {
			success(f.res.Value)
		}
	}()
}
