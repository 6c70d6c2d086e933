package stage

import (
	"github.com/ib-77/procpipe/pkg/pipe"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Stage at construction.
type Option[T any] func(*Stage[T])

func WithMode[T any](m pipe.Mode) Option[T] {
	return func(s *Stage[T]) {
		s.mode = m
	}
}

// WithTransform replaces the default identity transform.
func WithTransform[T any](t pipe.Transform[T]) Option[T] {
	return func(s *Stage[T]) {
		if !t.IsZero() {
			s.transform = t
		}
	}
}

// WithInputHook sets a hook applied to every value entering the stage,
// before its transform.
func WithInputHook[T any](h Hook[T]) Option[T] {
	return func(s *Stage[T]) {
		s.onInput = h
	}
}

// WithOutputHook sets a hook applied to the transform's result before it is
// handed on.
func WithOutputHook[T any](h Hook[T]) Option[T] {
	return func(s *Stage[T]) {
		s.onOutput = h
	}
}

func WithName[T any](name string) Option[T] {
	return func(s *Stage[T]) {
		if name != "" {
			s.name, s.named = name, true
		}
	}
}

// WithLogger attaches a logger. Traversals log at debug level; misbehaving
// asynchronous completions are logged at warn and error.
func WithLogger[T any](l zerolog.Logger) Option[T] {
	return func(s *Stage[T]) {
		s.log = l.With().Str(FieldComponent, "stage").Logger()
	}
}

// WithTracer sets the tracer used for traversal and hop spans. Without it
// the global otel tracer provider is used.
func WithTracer[T any](t trace.Tracer) Option[T] {
	return func(s *Stage[T]) {
		s.tracer = t
	}
}

func WithMetrics[T any](m *Metrics) Option[T] {
	return func(s *Stage[T]) {
		s.metrics = m
	}
}
