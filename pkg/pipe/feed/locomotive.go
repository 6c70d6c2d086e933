package feed

import (
	"context"
	"errors"

	"github.com/ib-77/procpipe/pkg/pipe/stage"
)

type Handlers[T any] struct {
	// OnCancel is called once when ctx ends, with the inputs not yet read.
	OnCancel func(ctx context.Context, rest <-chan T)
	// OnCancelUnprocessed is called for an input whose traversal was still
	// running when ctx ended.
	OnCancelUnprocessed func(ctx context.Context, in T)
	// OnError is called when an input could not be run, e.g. because the
	// chain is misconfigured. The input is skipped.
	OnError func(ctx context.Context, in T, err error)
	// OnSuccess is called after a result was forwarded.
	OnSuccess func(ctx context.Context, in, out T)
}

// Run reads inputs and runs each through root, waiting for one traversal to
// finish before starting the next, and forwards the final values in input
// order. The returned channel is closed when inputCh is closed and drained,
// or when ctx ends.
func Run[T any](ctx context.Context, root stage.Node[T], inputCh <-chan T, handlers Handlers[T]) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)
		locomotive(ctx, root, inputCh, out, handlers)
	}()

	return out
}

func locomotive[T any](ctx context.Context, root stage.Node[T], inputCh <-chan T, outCh chan<- T, handlers Handlers[T]) {
	cancel := func() {
		if handlers.OnCancel != nil {
			handlers.OnCancel(ctx, inputCh)
		}
	}

	for {
		select {
		case <-ctx.Done():
			cancel()
			return
		case in, ok := <-inputCh:
			if !ok {
				return
			}

			res, err := Await(ctx, root, in)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					if handlers.OnCancelUnprocessed != nil {
						handlers.OnCancelUnprocessed(ctx, in)
					}
					cancel()
					return
				}
				if handlers.OnError != nil {
					handlers.OnError(ctx, in, err)
				}
				continue
			}

			select {
			case <-ctx.Done():
				if handlers.OnCancelUnprocessed != nil {
					handlers.OnCancelUnprocessed(ctx, in)
				}
				cancel()
				return
			case outCh <- res:
				if handlers.OnSuccess != nil {
					handlers.OnSuccess(ctx, in, res)
				}
			}
		}
	}
}
