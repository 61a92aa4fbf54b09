package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindForbidden          Kind = "FORBIDDEN"
	KindBadRequest         Kind = "BAD_REQUEST"
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
)

// Error carries one of the four application error kinds with a
// human-readable message. The domain layer returns plain sentinel errors;
// use cases translate them into this type.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func BadRequestFrom(err error) *Error {
	return &Error{Kind: KindBadRequest, Message: err.Error(), Err: err}
}

func ServiceUnavailable(message string, err error) *Error {
	return &Error{Kind: KindServiceUnavailable, Message: message, Err: err}
}

// KindOf classifies any error; unrecognized errors count as infrastructure
// failures.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindServiceUnavailable
}
