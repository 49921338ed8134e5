package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure. The value is what callers see as error_kind in a tool result.
type Kind string

const (
	KindParse            Kind = "parse_error"
	KindRange            Kind = "range_error"
	KindInvalidInput     Kind = "invalid_input"
	KindIndexUnavailable Kind = "index_unavailable"
	KindEmbeddingTimeout Kind = "embedding_timeout"
	KindStorage          Kind = "storage_error"
	KindNotFound         Kind = "not_found"
)

// Error is the single error type produced by engine packages. Op names the failing operation
// (e.g. "parse_amount", "plan.upsert"); Err is the underlying cause, if any.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// PublicMessage is the error text without the underlying cause, safe to return to callers.
func (e *Error) PublicMessage() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

// ErrorKind exposes the kind to layers that must not import this package's types directly.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// Retryable reports whether repeating the same call may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindEmbeddingTimeout || e.Kind == KindStorage
}

// UserCorrectable reports whether the failure stems from the caller's input.
func (e *Error) UserCorrectable() bool {
	switch e.Kind {
	case KindParse, KindRange, KindInvalidInput, KindNotFound:
		return true
	default:
		return false
	}
}

func ParseError(op, format string, args ...any) error {
	return &Error{Kind: KindParse, Op: op, Message: fmt.Sprintf(format, args...)}
}

func RangeError(op, format string, args ...any) error {
	return &Error{Kind: KindRange, Op: op, Message: fmt.Sprintf(format, args...)}
}

func InvalidInputError(op, format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(op, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func IndexUnavailableError(op, msg string, cause error) error {
	return &Error{Kind: KindIndexUnavailable, Op: op, Message: msg, Err: cause}
}

func EmbeddingTimeoutError(op, msg string, cause error) error {
	return &Error{Kind: KindEmbeddingTimeout, Op: op, Message: msg, Err: cause}
}

func StorageError(op, msg string, cause error) error {
	return &Error{Kind: KindStorage, Op: op, Message: msg, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
