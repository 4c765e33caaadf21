package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig        Category = "config"
	CategoryRender        Category = "render"
	CategorySerialization Category = "serialization"
	CategoryStream        Category = "stream"
	CategoryRoute         Category = "route"
)

// Error is a structured error with a stable code.
type Error struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type (config, render, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Path locates the offending node in the spec tree (e.g., "r.c[1].then").
	Path string

	// Tag is the component tag involved, if known.
	Tag string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" && e.Detail != templateDetail(e.Code) {
		msg += ": " + e.Detail
	}
	if e.Path != "" {
		msg += " (at " + e.Path + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return e.Code + ": " + msg
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithDetail replaces the detailed explanation.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// WithDetailf replaces the detailed explanation with a formatted string.
func (e *Error) WithDetailf(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithPath records where in the tree the error occurred.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithTag records the component tag involved.
func (e *Error) WithTag(tag string) *Error {
	e.Tag = tag
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new Error from a registered code with a formatted detail.
func Newf(code string, format string, args ...any) *Error {
	return New(code).WithDetailf(format, args...)
}

// FromError wraps a standard error in an Error.
// Errors that already are *Error are returned unchanged.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return New(code).Wrap(err)
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err's chain contains an *Error with code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &Error{Code: code})
}

func templateDetail(code string) string {
	if t, ok := registry[code]; ok {
		return t.Detail
	}
	return ""
}
