// Package apperror defines application errors that map onto HTTP responses.
package apperror

import (
	"fmt"
	"net/http"
)

// Error is an application error carrying the HTTP status it should render as.
// The wire shape for every error response is {"error": "<message>"}.
type Error struct {
	HTTPStatus int
	Message    string
	Internal   error
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s (%v)", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error.
func (e *Error) Unwrap() error {
	return e.Internal
}

// WithInternal returns a copy of the error with an internal cause attached.
func (e *Error) WithInternal(err error) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Message:    e.Message,
		Internal:   err,
	}
}

// WithMessage returns a copy of the error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Message:    message,
		Internal:   e.Internal,
	}
}

// New creates a new application error.
func New(status int, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Message:    message,
	}
}

// Common error definitions
var (
	ErrBadRequest = New(http.StatusBadRequest, "Invalid request")
	ErrNotFound   = New(http.StatusNotFound, "Not found")
	ErrInternal   = New(http.StatusInternalServerError, "Internal server error")
)

// NewBadRequest creates a bad request error with a custom message.
func NewBadRequest(message string) *Error {
	return ErrBadRequest.WithMessage(message)
}

// NewInternal creates an internal error with a message and optional wrapped error.
func NewInternal(message string, err error) *Error {
	return &Error{
		HTTPStatus: http.StatusInternalServerError,
		Message:    message,
		Internal:   err,
	}
}
