package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError means the payload or the state it targets was rejected.
// It is not worth retrying blindly.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// AuthError means the credential was rejected (HTTP 401). Nothing local can fix it.
type AuthError struct {
	message string
}

func NewAuthError(msg string) error {
	if msg == "" {
		msg = "not authenticated"
	}
	return &AuthError{message: msg}
}

func (err AuthError) Error() string {
	return err.message
}

func IsAuth(err error) bool {
	_, ok := errors.Cause(err).(*AuthError)
	return ok
}

// NetworkError is a transient failure: the request may succeed if sent again.
type NetworkError struct {
	Err error
}

func NewNetworkError(err error) error {
	return &NetworkError{Err: err}
}

func (err NetworkError) Error() string {
	if err.Err == nil {
		return "network error"
	}
	return err.Err.Error()
}

func IsNetwork(err error) bool {
	_, ok := errors.Cause(err).(*NetworkError)
	return ok
}

// NotFoundError means the requested resource does not exist (anymore).
type NotFoundError struct {
	message string
}

func NewNotFoundError(msg string) error {
	if msg == "" {
		msg = "not found"
	}
	return &NotFoundError{message: msg}
}

func (err NotFoundError) Error() string {
	return err.message
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
