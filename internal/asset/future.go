package asset

import (
	"context"

	"github.com/l1jgo/assetd/internal/loader"
)

// Future is the pending result of Registry.Load.
type Future struct {
	done      chan struct{}
	resources []loader.Resource
	err       error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Done is closed once the batch has finished, successfully or not.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the batch finishes or ctx ends. On success it returns
// every resource the loader produced, in request order. A failed batch
// yields ErrLoadEscalated; the loader's error goes to the registry's
// unhandled-error handler instead.
func (f *Future) Wait(ctx context.Context) ([]loader.Resource, error) {
	select {
	case <-f.done:
		return f.resources, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) resolve(resources []loader.Resource) {
	f.resources = resources
	close(f.done)
}

func (f *Future) fail(err error) {
	f.err = err
	close(f.done)
}
