// Motif error tools
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// WrapE wraps the original error with a static error message.
// It returns a new error that includes both the static error and the original error.
func WrapE(staticErr, originalErr error) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %w", file, line, staticErr, originalErr)
}

func Wrap(err error, msg string) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %s", file, line, err, msg)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %s", file, line, err, fmt.Sprintf(format, args...))
}

// New creates a new error with the given text, prefixed with the caller position.
func New(text string) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %s", file, line, text)
}

// Newf creates a new error with a formatted message.
func Newf(format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %s", file, line, fmt.Sprintf(format, args...))
}

// Is and As re-export the standard library helpers so callers only import one errors package.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// Sentinel returns an unannotated error suitable for package level sentinel vars.
func Sentinel(text string) error { return errors.New(text) }

// InvariantError is raised (as a panic value) when a programming invariant is broken.
// Code is unique per call site so a crash report points at exactly one place.
type InvariantError struct {
	Code    string
	Message string
	File    string
	Line    int
}

func (e *InvariantError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invariant %s (%s:%d)", e.Code, e.File, e.Line)
	}
	return fmt.Sprintf("invariant %s: %s (%s:%d)", e.Code, e.Message, e.File, e.Line)
}

// Fatal panics with an *InvariantError. It is never recovered inside this module.
func Fatal(code string, format string, args ...any) {
	_, file, line, _ := runtime.Caller(1)
	panic(&InvariantError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		File:    file,
		Line:    line,
	})
}

// Unreachable is Fatal for switch defaults over closed enumerations.
func Unreachable(code string, value any) {
	_, file, line, _ := runtime.Caller(1)
	panic(&InvariantError{
		Code:    code,
		Message: fmt.Sprintf("unreachable value %v", value),
		File:    file,
		Line:    line,
	})
}
