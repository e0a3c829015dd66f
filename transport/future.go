package transport

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Future is an asynchronous handle to a value produced by the transport.
//
// Get waits for the value. Ownership of a value returned by Get moves to the
// caller. Close releases the handle: if the value resolved but was never
// taken, Close releases it too. Close on an unresolved handle waits for the
// resolution (bounded by ctx) so the server-side resource is not leaked.
type Future[T io.Closer] interface {
	Get(ctx context.Context) (T, error)
	Close(ctx context.Context) error
}

// Resolved returns a Future already holding v.
func Resolved[T io.Closer](v T) Future[T] {
	f := newFuture[T](nil)
	f.complete(v, nil)
	return f
}

// Failed returns a Future that fails with err.
func Failed[T io.Closer](err error) Future[T] {
	f := newFuture[T](nil)
	var zero T
	f.complete(zero, err)
	return f
}

// Go runs fn on its own goroutine and returns a Future for its result. The
// context passed to fn carries the values of parent but not its cancellation,
// since the result outlives the call that started it; Close cancels it.
func Go[T io.Closer](parent context.Context, fn func(ctx context.Context) (T, error)) Future[T] {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	f := newFuture[T](cancel)
	go func() {
		v, err := fn(ctx)
		f.complete(v, err)
	}()
	return f
}

type future[T io.Closer] struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu     sync.Mutex
	value  T
	err    error
	taken  bool
	closed bool
}

func newFuture[T io.Closer](cancel context.CancelFunc) *future[T] {
	return &future[T]{done: make(chan struct{}), cancel: cancel}
}

func (f *future[T]) complete(v T, err error) {
	f.mu.Lock()
	f.value, f.err = v, err
	f.mu.Unlock()
	close(f.done)
}

func (f *future[T]) Get(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-f.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return zero, errors.New("transport: future already closed")
	}
	if f.err != nil {
		return zero, f.err
	}
	f.taken = true
	return f.value, nil
}

func (f *future[T]) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	select {
	case <-f.done:
	case <-ctx.Done():
		if f.cancel != nil {
			f.cancel()
		}
		<-f.done
	}
	if f.cancel != nil {
		f.cancel()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.taken || f.err != nil {
		return nil
	}
	return closeValue(f.value)
}

func closeValue[T io.Closer](v T) error {
	if any(v) == nil {
		return nil
	}
	return v.Close()
}
