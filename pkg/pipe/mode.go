package pipe

// Mode selects how a stage runs its transform. It is fixed when the stage is
// built. The zero value is Asynchronous.
type Mode int

const (
	// Asynchronous stages complete through a callback, possibly later and
	// from another goroutine.
	Asynchronous Mode = iota
	// Synchronous stages return their result directly.
	Synchronous
)

func (m Mode) String() string {
	switch m {
	case Asynchronous:
		return "async"
	case Synchronous:
		return "sync"
	default:
		return "unknown"
	}
}

// IsAsync reports whether m is Asynchronous.
func (m Mode) IsAsync() bool {
	return m == Asynchronous
}
