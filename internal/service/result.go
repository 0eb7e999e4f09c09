package service

import (
	"context"
	"sync"
)

// Completion receives the outcome of a sync operation on the dispatcher.
type Completion func(err error)

// Result is the eventual outcome of one sync operation.
type Result struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

func (r *Result) resolve(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Done is closed once the operation has finished.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Err returns the outcome; it is nil until Done is closed.
func (r *Result) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until the operation finishes or ctx ends. Giving up on the wait
// does not stop the operation.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
