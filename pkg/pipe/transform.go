package pipe

import "context"

// SyncFunc transforms a value and returns the result.
type SyncFunc[T any] func(ctx context.Context, in T) T

// Completion hands a transformed value back to the pipeline.
type Completion[T any] func(out T)

// AsyncFunc transforms a value and reports the result through done.
// done may be called later and from any goroutine.
type AsyncFunc[T any] func(ctx context.Context, in T, done Completion[T])

// Transform is the processing step of a stage. It carries a synchronous
// variant, an asynchronous variant, or both.
type Transform[T any] struct {
	sync  SyncFunc[T]
	async AsyncFunc[T]
}

// Sync declares a value-returning transform.
func Sync[T any](fn SyncFunc[T]) Transform[T] {
	return Transform[T]{sync: fn}
}

// Async declares a callback-completing transform.
func Async[T any](fn AsyncFunc[T]) Transform[T] {
	return Transform[T]{async: fn}
}

// Identity passes values through unchanged in either mode.
func Identity[T any]() Transform[T] {
	return Transform[T]{
		sync: func(_ context.Context, in T) T {
			return in
		},
		async: func(_ context.Context, in T, done Completion[T]) {
			done(in)
		},
	}
}

// IsZero reports whether neither variant is set.
func (t Transform[T]) IsZero() bool {
	return t.sync == nil && t.async == nil
}

// Supports reports whether t can run in mode m.
func (t Transform[T]) Supports(m Mode) bool {
	if m == Synchronous {
		return t.sync != nil
	}
	return t.async != nil
}

// Apply runs the synchronous variant.
func (t Transform[T]) Apply(ctx context.Context, in T) (T, error) {
	if t.sync == nil {
		var zero T
		return zero, Configuration("", Synchronous)
	}
	return t.sync(ctx, in), nil
}

// Start runs the asynchronous variant. The returned error only reports a
// missing variant; the result arrives through done.
func (t Transform[T]) Start(ctx context.Context, in T, done Completion[T]) error {
	if t.async == nil {
		return Configuration("", Asynchronous)
	}
	t.async(ctx, in, done)
	return nil
}
