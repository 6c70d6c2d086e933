package pipe

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeInvalidArgument marks a value that cannot be linked into a chain.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	// CodeConfiguration marks a stage whose transform does not match its mode.
	CodeConfiguration Code = "CONFIGURATION"
)

var (
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrConfiguration   = &Error{Code: CodeConfiguration, Message: "stage misconfigured"}
)

// Error is the error type returned by pipeline operations.
type Error struct {
	Code    Code
	Message string
	// Stage names the stage involved, if any.
	Stage string
	Cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: stage %q: %s", e.Code, e.Stage, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (cause: %v)", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error carrying the same code, so errors.Is(err,
// ErrConfiguration) works regardless of message and stage.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithStage returns a copy of e naming the given stage.
func (e *Error) WithStage(name string) *Error {
	cp := *e
	cp.Stage = name
	return &cp
}

// InvalidArgument reports a value that cannot be piped.
func InvalidArgument(reason string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: reason}
}

// Configuration reports a stage whose transform cannot run in mode m.
func Configuration(stage string, m Mode) *Error {
	msg := "asynchronous mode requires a callback-accepting transform"
	if m == Synchronous {
		msg = "synchronous mode requires a value-returning transform"
	}
	return &Error{Code: CodeConfiguration, Message: msg, Stage: stage}
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
