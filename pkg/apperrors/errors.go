// Package apperrors defines the typed error taxonomy shared across the
// analysis pipeline. Every failure that can reach a caller is classified
// into one of the Kind values below; raw provider or driver errors are
// wrapped, never surfaced directly.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure for recovery decisions. The engine decides
// whether to retry, rephrase, or answer with a degraded response based
// solely on the kind, never on message text.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindTimeout          Kind = "timeout"
	KindTableNotFound    Kind = "missing_table"
	KindColumnNotFound   Kind = "missing_column"
	KindSQLSyntax        Kind = "sql_syntax"
	KindTypeMismatch     Kind = "type_mismatch"
	KindLLMUnavailable   Kind = "llm_unavailable"
	KindMissingEntity    Kind = "missing_entity"
	KindExhaustedRetries Kind = "exhausted_retries"
	KindGeneric          Kind = "generic"
)

var (
	// ErrSessionNotFound indicates an unknown or already closed session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionNotLoaded indicates the session's dataset has not been loaded yet.
	ErrSessionNotLoaded = errors.New("session dataset not loaded")
	// ErrValueMismatch indicates a response value whose shape does not match its tag.
	ErrValueMismatch = errors.New("output value does not match its declared type")
)

// Error is a classified failure with an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// New creates a classified error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the classification from err. Unclassified errors
// report KindGeneric; nil reports an empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var tnf *TableNotFoundError
	if errors.As(err, &tnf) {
		return KindTableNotFound
	}
	return KindGeneric
}

// TableNotFoundError reports a query referencing a table that is not
// registered in the embedded engine, together with what is available.
type TableNotFoundError struct {
	Name      string
	Available []string
}

// Error implements the error interface.
func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q not found; available tables: %s",
		e.Name, strings.Join(e.Available, ", "))
}
