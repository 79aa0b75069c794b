package service

import (
	"errors"
	"fmt"
)

// Kind classifies service errors so transports can map them to statuses.
type Kind int

const (
	KindInternal    Kind = iota // unexpected failure
	KindValidation              // malformed or missing input
	KindUnsupported             // well-formed input asking for something we do not do
	KindUnavailable             // model not loaded
	KindBusy                    // no inference slot within the queue timeout
	KindInference               // the engine failed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnsupported:
		return "unsupported"
	case KindUnavailable:
		return "unavailable"
	case KindBusy:
		return "busy"
	case KindInference:
		return "inference"
	default:
		return "internal"
	}
}

// Error is a classified service error. Message is safe to show to clients;
// Err carries the underlying cause.
type Error struct {
	Err     error
	Message string
	Kind    Kind
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
