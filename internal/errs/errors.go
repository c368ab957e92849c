// Package errs defines the document-level errors the pipeline reports upward.
// Per-page and per-field problems never become errors; they degrade in place.
package errs

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Kind groups errors by what went wrong.
type Kind string

const (
	KindFile     Kind = "file"
	KindFormat   Kind = "format"
	KindConfig   Kind = "config"
	KindInternal Kind = "internal"
)

// Code is a specific error within a Kind.
type Code string

const (
	CodeFileNotFound      Code = "file_not_found"
	CodeFileEmpty         Code = "file_empty"
	CodeFileUnreadable    Code = "file_unreadable"
	CodeUnsupportedFormat Code = "unsupported_format"
	CodeNoPages           Code = "no_pages"
	CodeInvalidConfig     Code = "invalid_config"
	CodeUnexpected        Code = "unexpected"
)

// Error is the error type returned across package boundaries.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Path    string
	Cause   error
	stack   errors.StackTrace
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StackTrace returns where the error was created.
func (e *Error) StackTrace() errors.StackTrace {
	return e.stack
}

// ExitCode maps the error kind to a CLI exit status.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindFile:
		return 2
	case KindFormat:
		return 3
	case KindConfig:
		return 4
	default:
		return 5
	}
}

// WithPath attaches the offending file path.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// New creates an Error with a captured stack.
func New(kind Kind, code Code, message string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		stack:   errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap creates an Error around cause. A nil cause returns nil.
func Wrap(cause error, kind Kind, code Code, message string) *Error {
	if cause == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Cause:   cause,
		stack:   errors.WithStack(cause).(stackTracer).StackTrace(),
	}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// ExitCode returns the exit status for any error, 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := As(err); ok {
		return e.ExitCode()
	}
	return 1
}
