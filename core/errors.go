package core

import "github.com/pkg/errors"

// ErrPermissionDenied is returned when the caller is authenticated but may not perform the operation.
var ErrPermissionDenied = NewPermissionDenied("permission denied")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type PermissionDenied struct {
	message string
}

func NewPermissionDenied(msg string) *PermissionDenied {
	return &PermissionDenied{message: msg}
}

func (err PermissionDenied) Error() string {
	return err.message
}

func IsPermissionDenied(err error) bool {
	_, ok := errors.Cause(err).(*PermissionDenied)
	return ok
}

type NotFound struct {
	message string
}

func NewNotFound(msg string) *NotFound {
	return &NotFound{message: msg}
}

func (err NotFound) Error() string {
	return err.message
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFound)
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
