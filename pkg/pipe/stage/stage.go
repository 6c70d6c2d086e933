package stage

import (
	"sync"

	"github.com/google/uuid"
	"github.com/ib-77/procpipe/pkg/pipe"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Hook adjusts a value around a stage's transform.
type Hook[T any] func(T) T

// Terminal receives the final value of a traversal. In synchronous
// traversals its return value is what Input returns.
type Terminal[T any] func(T) T

// Node is anything that can be linked into a chain: a *Stage or a struct
// embedding one.
type Node[T any] interface {
	Base() *Stage[T]
}

// Stage is a pipeline node. When its chain is non-empty it is also the root
// of the pipeline made of that chain.
type Stage[T any] struct {
	id        uuid.UUID
	name      string
	named     bool
	mode      pipe.Mode
	transform pipe.Transform[T]
	onInput   Hook[T]
	onOutput  Hook[T]

	log     zerolog.Logger
	tracer  trace.Tracer
	metrics *Metrics

	mu     sync.RWMutex
	chain  []*Stage[T]
	onDone Terminal[T]
}

// New builds an asynchronous identity stage, adjusted by opts.
func New[T any](opts ...Option[T]) *Stage[T] {
	id := uuid.New()
	s := &Stage[T]{
		id:        id,
		name:      id.String()[:8],
		mode:      pipe.Asynchronous,
		transform: pipe.Identity[T](),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSync builds a synchronous stage running fn.
func NewSync[T any](fn pipe.SyncFunc[T], opts ...Option[T]) *Stage[T] {
	base := []Option[T]{WithMode[T](pipe.Synchronous), WithTransform(pipe.Sync(fn))}
	return New(append(base, opts...)...)
}

// NewAsync builds an asynchronous stage running fn.
func NewAsync[T any](fn pipe.AsyncFunc[T], opts ...Option[T]) *Stage[T] {
	base := []Option[T]{WithMode[T](pipe.Asynchronous), WithTransform(pipe.Async(fn))}
	return New(append(base, opts...)...)
}

func (s *Stage[T]) Base() *Stage[T] { return s }

func (s *Stage[T]) ID() uuid.UUID { return s.id }

func (s *Stage[T]) Name() string { return s.name }

func (s *Stage[T]) Mode() pipe.Mode { return s.mode }

// Transform returns the stage's processing step.
func (s *Stage[T]) Transform() pipe.Transform[T] { return s.transform }

// Pipe appends next to the chain and returns next's stage, so
// a.Pipe(b).Pipe(c) links c after b. It panics if next is not a stage;
// use Append to get the error instead.
func (s *Stage[T]) Pipe(next Node[T]) *Stage[T] {
	st, err := s.Append(next)
	if err != nil {
		panic(err)
	}
	return st
}

// Append is Pipe with an error instead of a panic.
func (s *Stage[T]) Append(next Node[T]) (*Stage[T], error) {
	if pipe.IsNil(next) {
		return nil, pipe.InvalidArgument("pipe requires a stage").WithStage(s.name)
	}
	st := next.Base()
	if st == nil {
		return nil, pipe.InvalidArgument("pipe requires a stage").WithStage(s.name)
	}

	s.mu.Lock()
	s.chain = append(s.chain, st)
	n := len(s.chain)
	s.mu.Unlock()

	s.log.Debug().
		Str(FieldStage, s.name).
		Str("next", st.name).
		Int("chain_len", n).
		Msg("stage piped")
	return st, nil
}

// Clear empties the chain.
func (s *Stage[T]) Clear() *Stage[T] {
	s.mu.Lock()
	s.chain = nil
	s.mu.Unlock()
	return s
}

// Done registers the terminal callback used when a traversal ends at this
// stage and Input was given no callback.
func (s *Stage[T]) Done(cb Terminal[T]) *Stage[T] {
	s.mu.Lock()
	s.onDone = cb
	s.mu.Unlock()
	return s
}

// Chain returns a copy of the stages linked after s.
func (s *Stage[T]) Chain() []*Stage[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.chain) == 0 {
		return nil
	}
	out := make([]*Stage[T], len(s.chain))
	copy(out, s.chain)
	return out
}

func (s *Stage[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chain)
}

func (s *Stage[T]) doneCallback() Terminal[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onDone
}

func (s *Stage[T]) applyInput(v T) T {
	if s.onInput == nil {
		return v
	}
	return s.onInput(v)
}

func (s *Stage[T]) applyOutput(v T) T {
	if s.onOutput == nil {
		return v
	}
	return s.onOutput(v)
}

// validate walks every stage reachable from s and checks that each
// transform supports its stage's mode.
func (s *Stage[T]) validate() error {
	seen := map[*Stage[T]]struct{}{}
	stack := []*Stage[T]{s}
	for len(stack) > 0 {
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[st]; ok {
			continue
		}
		seen[st] = struct{}{}
		if !st.transform.Supports(st.mode) {
			return pipe.Configuration(st.name, st.mode)
		}
		stack = append(stack, st.Chain()...)
	}
	return nil
}
