// pkg/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// NetworkError means no response reached the client.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

// TimeoutError means the request deadline was exceeded.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out: %s", e.Op)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func NewTimeoutError(op string, err error) *TimeoutError {
	return &TimeoutError{Op: op, Err: err}
}

// HttpError is a transport-level failure: a non-2xx status, or any body that
// is not a recognised envelope.
type HttpError struct {
	Status int
	Body   string
}

func (e *HttpError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http error: status %d", e.Status)
	}
	return fmt.Sprintf("http error: status %d: %s", e.Status, e.Body)
}

func NewHttpError(status int, body string) *HttpError {
	const max = 256
	body = strings.TrimSpace(body)
	if len(body) > max {
		body = body[:max]
	}
	return &HttpError{Status: status, Body: body}
}

// ApiError is a business failure reported by the server with success=false.
type ApiError struct {
	Message string
}

func (e *ApiError) Error() string {
	if e.Message == "" {
		return "request failed"
	}
	return e.Message
}

func NewApiError(message string) *ApiError {
	return &ApiError{Message: message}
}

type MissingIdentifierError struct {
	Kind string
	Keys []string
}

func (e *MissingIdentifierError) Error() string {
	return fmt.Sprintf("%s record has no identifier (tried %s)", e.Kind, strings.Join(e.Keys, ", "))
}

func NewMissingIdentifierError(kind string, keys []string) *MissingIdentifierError {
	return &MissingIdentifierError{Kind: kind, Keys: keys}
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// AuthenticationError is returned in place of a business error when the
// server answered 401 and the session has been cleared.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{Message: message}
}

type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

func NewBadRequestError(message string) *BadRequestError {
	return &BadRequestError{Message: message}
}

type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	if e.Message == "" {
		return "internal server error"
	}
	return e.Message
}

func NewInternalError() *InternalError {
	return &InternalError{}
}

// WithFallback fills in msg when err is an ApiError without a message.
// Any other error, and any ApiError that carries a message, is returned as is.
func WithFallback(err error, msg string) error {
	var apiErr *ApiError
	if stderrors.As(err, &apiErr) && apiErr.Message == "" {
		return NewApiError(msg)
	}
	return err
}

// IsUnauthorized reports whether err is the centrally handled 401.
func IsUnauthorized(err error) bool {
	var authErr *AuthenticationError
	return stderrors.As(err, &authErr)
}
