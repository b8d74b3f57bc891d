package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryRuntime    Category = "runtime"
	CategoryConfig     Category = "config"
	CategoryProtocol   Category = "protocol"
	CategoryStorage    Category = "storage"
	CategoryCLI        Category = "cli"
)

// KeyedError is a structured error with a code, explanation and documentation.
type KeyedError struct {
	// Code is a unique error identifier (e.g., "E201").
	Code string

	// Category is the error type (validation, runtime, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example is code showing the correct approach.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *KeyedError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *KeyedError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a KeyedError with the same code.
func (e *KeyedError) Is(target error) bool {
	t, ok := target.(*KeyedError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *KeyedError) WithSuggestion(s string) *KeyedError {
	e.Suggestion = s
	return e
}

// WithExample adds a code example to the error.
func (e *KeyedError) WithExample(ex string) *KeyedError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *KeyedError) WithDetail(d string) *KeyedError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detailed explanation to the error.
func (e *KeyedError) WithDetailf(format string, args ...any) *KeyedError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *KeyedError) Wrap(err error) *KeyedError {
	e.Wrapped = err
	return e
}

// New creates a KeyedError from a registered error code.
func New(code string) *KeyedError {
	template, ok := registry[code]
	if !ok {
		return &KeyedError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &KeyedError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new KeyedError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *KeyedError {
	return &KeyedError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a KeyedError.
// A KeyedError is returned unchanged.
func FromError(err error, code string) *KeyedError {
	if err == nil {
		return nil
	}
	if ke, ok := err.(*KeyedError); ok {
		return ke
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err is, or wraps, a KeyedError with the given code.
func HasCode(err error, code string) bool {
	for err != nil {
		if ke, ok := err.(*KeyedError); ok && ke.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
