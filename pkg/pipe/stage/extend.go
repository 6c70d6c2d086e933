package stage

// Factory builds stages of one kind. Mode is initialised as New does:
// asynchronous unless an option says otherwise.
type Factory[T any] func(opts ...Option[T]) *Stage[T]

// Extend returns a factory whose stages share s's transform, hooks, logger,
// tracer and metrics, and its name if one was set with WithName. Chains,
// Done callbacks and mode are not inherited.
func (s *Stage[T]) Extend() Factory[T] {
	proto := s.species()
	return func(opts ...Option[T]) *Stage[T] {
		return New(append([]Option[T]{proto}, opts...)...)
	}
}

// Extend hands a base factory to ctor and returns whatever ctor builds,
// typically a constructor for a struct that embeds *Stage and carries its
// own fields:
//
//	type scaled struct {
//		*stage.Stage[int]
//		factor int
//	}
//
//	newScaled := stage.Extend(proto, func(base stage.Factory[int]) func(int, ...stage.Option[int]) *scaled {
//		return func(factor int, opts ...stage.Option[int]) *scaled {
//			return &scaled{Stage: base(opts...), factor: factor}
//		}
//	})
//
// A nil proto extends a plain New stage.
func Extend[T, F any](proto Node[T], ctor func(base Factory[T]) F) F {
	base := Factory[T](New[T])
	if proto != nil && proto.Base() != nil {
		base = proto.Base().Extend()
	}
	return ctor(base)
}

func (s *Stage[T]) species() Option[T] {
	return func(dst *Stage[T]) {
		if s.named {
			dst.name, dst.named = s.name, true
		}
		dst.transform = s.transform
		dst.onInput = s.onInput
		dst.onOutput = s.onOutput
		dst.log = s.log
		dst.tracer = s.tracer
		dst.metrics = s.metrics
	}
}
