package feed

import (
	"context"

	"github.com/ib-77/procpipe/pkg/pipe/stage"
)

// Await runs data through root and blocks until the traversal's final value
// arrives or ctx is done. It passes its own terminal callback, so Done
// callbacks registered on the chain are not called.
//
// When ctx ends first Await returns ctx.Err(); the traversal itself is not
// cancelled and finishes, or stalls, on its own.
func Await[T any](ctx context.Context, root stage.Node[T], data T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	out := make(chan T, 1)
	_, err := root.Base().Input(ctx, data, func(v T) T {
		out <- v
		return v
	})
	if err != nil {
		return zero, err
	}

	select {
	case v := <-out:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
