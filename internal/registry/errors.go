package registry

import (
	"errors"
	"fmt"
)

// Kind classifies registry failures so transports can map them to status codes.
type Kind int

const (
	KindAlreadyExists Kind = iota + 1
	KindNotFound
	KindInvalidInput
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindAlreadyExists:
		return "ALREADY_EXISTS"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindTooLarge:
		return "TOO_LARGE"
	default:
		return "UNKNOWN"
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrAlreadyExists = errors.New("device id already exists")
	ErrNotFound      = errors.New("device id not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTooLarge      = errors.New("content too large")
)

// Error is the typed failure returned by Registry operations.
type Error struct {
	Kind     Kind
	DeviceID string
	Detail   string
}

func (e *Error) Error() string {
	msg := e.sentinel().Error()
	if e.DeviceID != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.DeviceID)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Is reports whether target is the sentinel for e.Kind, or an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindAlreadyExists:
		return ErrAlreadyExists
	case KindNotFound:
		return ErrNotFound
	case KindInvalidInput:
		return ErrInvalidInput
	case KindTooLarge:
		return ErrTooLarge
	default:
		return errors.New("registry error")
	}
}

// KindOf returns the Kind carried by err, or 0 if err is not a registry error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// InvalidInput builds a KindInvalidInput error. Transports use it for
// validation failures that never reach the registry.
func InvalidInput(detail string) *Error {
	return &Error{Kind: KindInvalidInput, Detail: detail}
}
