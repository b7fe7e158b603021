package tool

import (
	"errors"
	"fmt"
)

// Kind classifies a tool failure
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	InvalidInput          Kind = "invalid input"
	PreconditionFailed    Kind = "precondition failed"
	IOFailure             Kind = "io failure"
	VerificationFailed    Kind = "verification failed"
	ConnectionUnavailable Kind = "connection unavailable"
	BestEffortSecondary   Kind = "secondary action failed"
	UnknownTool           Kind = "tool not found"
	Internal              Kind = "internal error"
)

// Error is a classified tool failure. Message is the text reported to the
// backend; Err, when set, is appended as the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// KindOf reports the Kind carried by err
func KindOf(err error) (Kind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	var k Kind
	if errors.As(err, &k) {
		return k, true
	}
	return "", false
}
