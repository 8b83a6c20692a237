// Package errors provides structured error types and exit codes for loom.
package errors

import (
	"fmt"
)

// Exit codes for orchestrators that surface loom failures as process results.
const (
	ExitSuccess          = 0 // Success
	ExitRuntimeError     = 1 // Runtime error (task failed, adapter failed, etc.)
	ExitConfigError      = 2 // Configuration error (invalid config, unknown command, etc.)
	ExitConsistencyError = 3 // Consistency error (stale or mismatched compiled artifacts)
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindValidation
	KindConsistency
	KindNotFound
)

// LoomError is the base error type for loom.
type LoomError struct {
	Kind    ErrorKind
	Message string
	Node    string // Node unique id if applicable
	Command string // Command name if applicable
	Cause   error  // Underlying error
}

func (e *LoomError) Error() string {
	if e.Node != "" && e.Command != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Command, e.Node, e.Message)
	}
	if e.Command != "" {
		return fmt.Sprintf("[%s] %s", e.Command, e.Message)
	}
	return e.Message
}

func (e *LoomError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *LoomError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindValidation, KindNotFound:
		return ExitConfigError
	case KindConsistency:
		return ExitConsistencyError
	default:
		return ExitRuntimeError
	}
}

// New creates a new runtime error.
func New(message string) *LoomError {
	return &LoomError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *LoomError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *LoomError {
	return &LoomError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *LoomError {
	return Config(fmt.Sprintf(format, args...))
}

// Validation creates a new validation error.
func Validation(message string) *LoomError {
	return &LoomError{
		Kind:    KindValidation,
		Message: message,
	}
}

// Validationf creates a new validation error with formatting.
func Validationf(format string, args ...interface{}) *LoomError {
	return Validation(fmt.Sprintf(format, args...))
}

// Consistency creates a new consistency error.
func Consistency(message string) *LoomError {
	return &LoomError{
		Kind:    KindConsistency,
		Message: message,
	}
}

// Consistencyf creates a new consistency error with formatting.
func Consistencyf(format string, args ...interface{}) *LoomError {
	return Consistency(fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *LoomError {
	return &LoomError{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, message string) *LoomError {
	return &LoomError{
		Kind:    KindConfig,
		Message: message,
		Cause:   err,
	}
}

// NodeError creates an error for a specific node.
func NodeError(command, node, message string) *LoomError {
	return &LoomError{
		Kind:    KindRuntime,
		Command: command,
		Node:    node,
		Message: message,
	}
}

// NotFound creates a not found error.
func NotFound(what, name string) *LoomError {
	return &LoomError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// IsKind reports whether err is a LoomError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	le, ok := err.(*LoomError)
	return ok && le.Kind == kind
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if le, ok := err.(*LoomError); ok {
		return le.ExitCode()
	}
	return ExitRuntimeError
}
