package stage

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ib-77/procpipe/pkg/pipe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type frame[T any] struct {
	owner *Stage[T]
	chain []*Stage[T]
	next  int
}

// traversal is the state of one Input call. Only one stage of a traversal
// runs at a time, so its fields need no locking.
type traversal[T any] struct {
	id     uuid.UUID
	root   *Stage[T]
	cb     Terminal[T]
	span   trace.Span
	frames []frame[T]
	// owners of frames exhausted since last was entered, innermost first
	owners []*Stage[T]
	last   *Stage[T]
	hops   int
}

// Input runs data through s and then through every stage linked after it.
// A stage's own chain runs before the chain that contains the stage
// continues. The final value goes to cb or, when cb is nil, to the Done
// callback of the last stage entered, else of the nearest enclosing chain
// owner that has one; with no callback at all the value is returned as is.
//
// Before anything runs, every reachable stage is checked for a transform
// matching its mode; a mismatch returns an error wrapping
// pipe.ErrConfiguration.
//
// In a synchronous traversal Input returns the terminal callback's result.
// Once an asynchronous stage is reached Input returns the zero value and the
// result is delivered to the terminal callback when the chain completes.
// Panics in transforms are not recovered; for asynchronous stages they
// surface in whichever goroutine invoked the completion.
//
// Each call has its own traversal state, so concurrent calls on one stage
// do not interfere. A chain that links back to an earlier stage never
// terminates.
func (s *Stage[T]) Input(ctx context.Context, data T, cb Terminal[T]) (T, error) {
	var zero T
	if err := s.validate(); err != nil {
		return zero, err
	}

	tr := &traversal[T]{id: uuid.New(), root: s, cb: cb}
	ctx = pipe.WithTraversal(ctx, tr.id)
	ctx, tr.span = s.tracerOrGlobal().Start(ctx, "pipe.traversal", trace.WithAttributes(
		attribute.String("pipe.traversal_id", tr.id.String()),
		attribute.String("pipe.root", s.name),
	))
	s.metrics.recordStart(ctx)
	s.log.Debug().
		Str(FieldTraversalID, tr.id.String()).
		Str(FieldStage, s.name).
		Int("chain_len", s.Len()).
		Msg("traversal started")

	out, err := tr.enter(ctx, s, data)
	if err != nil {
		tr.fail(ctx, err)
		return zero, err
	}
	return out, nil
}

func (tr *traversal[T]) enter(ctx context.Context, st *Stage[T], data T) (T, error) {
	var zero T
	tr.last = st
	tr.owners = tr.owners[:0]
	idx := tr.hops
	tr.hops++

	hopCtx, span := st.tracerOrGlobal().Start(ctx, "stage."+st.name, trace.WithAttributes(
		attribute.String("pipe.stage", st.name),
		attribute.Int("pipe.hop", idx),
		attribute.String("pipe.mode", st.mode.String()),
	))
	hopCtx = pipe.WithHop(hopCtx, pipe.Hop{TraversalID: tr.id, Stage: st.name, Index: idx})
	log := st.log.With().
		Str(FieldTraversalID, tr.id.String()).
		Str(FieldStage, st.name).
		Int(FieldHop, idx).
		Logger()
	log.Debug().Str(FieldMode, st.mode.String()).Msg("stage entered")

	data = st.applyInput(data)
	started := time.Now()
	complete := func() {
		d := time.Since(started)
		span.End()
		st.metrics.recordHop(ctx, st.name, st.mode.String(), d)
		log.Debug().Int64(FieldDuration, d.Milliseconds()).Msg("stage completed")
	}

	if st.mode == pipe.Synchronous {
		out, err := st.transform.Apply(hopCtx, data)
		if err != nil {
			return zero, misconfigured(span, st)
		}
		complete()
		return tr.next(ctx, st, st.applyOutput(out))
	}

	var completed atomic.Bool
	err := st.transform.Start(hopCtx, data, func(out T) {
		if !completed.CompareAndSwap(false, true) {
			log.Warn().Msg("completion called more than once, ignored")
			return
		}
		complete()
		if _, err := tr.next(ctx, st, st.applyOutput(out)); err != nil {
			log.Error().Err(err).Msg("traversal stopped")
			tr.fail(ctx, err)
		}
	})
	if err != nil {
		return zero, misconfigured(span, st)
	}
	return zero, nil
}

// next hands data to the following stage, descending into st's own chain
// first, or resolves the terminal callback when nothing is left.
func (tr *traversal[T]) next(ctx context.Context, st *Stage[T], data T) (T, error) {
	if chain := st.Chain(); len(chain) > 0 {
		tr.frames = append(tr.frames, frame[T]{owner: st, chain: chain})
	}
	for len(tr.frames) > 0 {
		top := &tr.frames[len(tr.frames)-1]
		if top.next < len(top.chain) {
			following := top.chain[top.next]
			top.next++
			return tr.enter(ctx, following, data)
		}
		tr.owners = append(tr.owners, top.owner)
		tr.frames = tr.frames[:len(tr.frames)-1]
	}
	return tr.terminate(ctx, data)
}

func (tr *traversal[T]) terminate(ctx context.Context, data T) (T, error) {
	cb, source := tr.terminal()
	tr.root.log.Debug().
		Str(FieldTraversalID, tr.id.String()).
		Str(FieldStage, tr.last.name).
		Str(FieldTerminal, source).
		Int("hops", tr.hops).
		Msg("traversal terminated")
	tr.root.metrics.recordEnd(ctx, source)
	tr.span.SetAttributes(
		attribute.String("pipe.terminal", source),
		attribute.Int("pipe.hops", tr.hops),
	)
	defer tr.span.End()
	return cb(data), nil
}

func (tr *traversal[T]) terminal() (Terminal[T], string) {
	if tr.cb != nil {
		return tr.cb, TerminalCallback
	}
	if cb := tr.last.doneCallback(); cb != nil {
		return cb, TerminalDone
	}
	for _, owner := range tr.owners {
		if cb := owner.doneCallback(); cb != nil {
			return cb, TerminalDone
		}
	}
	return func(v T) T { return v }, TerminalIdentity
}

func (tr *traversal[T]) fail(ctx context.Context, err error) {
	tr.span.RecordError(err)
	tr.span.SetStatus(codes.Error, err.Error())
	tr.span.End()
	tr.root.metrics.recordEnd(ctx, TerminalFailed)
}

func misconfigured[T any](span trace.Span, st *Stage[T]) error {
	err := pipe.Configuration(st.name, st.mode)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
	return err
}
