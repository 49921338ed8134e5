package plantool

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for plantool. Use errors.Is to check.
var (
	ErrToolNotFound = errors.New("tool not found")
	ErrTimeout      = errors.New("tool execution timeout")
	ErrValidation   = errors.New("validation failed")
	ErrShutdown     = errors.New("registry is shutting down")
)

// ClientError is an error that should be sent back to the agent for self-correction
// (e.g. invalid JSON, schema validation failure, an amount that cannot be parsed).
// Do not expose stack traces or internal details to the agent.
// Err optionally wraps a sentinel or a kinded error for errors.Is/errors.As.
type ClientError struct {
	Reason string
	// Retryable is set by the application. When true, the orchestrator may retry the same call
	// without changing arguments.
	Retryable bool
	Err       error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("invalid tool input: %s", e.Reason)
}

func (e *ClientError) Unwrap() error { return e.Err }

// SystemError represents an internal failure (storage down, panic, etc.).
// The agent should not see the underlying error message or stack.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	return "internal system error during tool execution"
}

func (e *SystemError) Unwrap() error { return e.Err }

// IsClientError returns true if err is or wraps a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// IsSystemError returns true if err is or wraps a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// kindedError is implemented by application errors that carry their own error kind.
type kindedError interface {
	error
	ErrorKind() string
}

type retryableError interface {
	Retryable() bool
}

type userCorrectableError interface {
	UserCorrectable() bool
}

type publicMessageError interface {
	PublicMessage() string
}

// wrapJSONParseError returns a ClientError for JSON unmarshal failures.
func wrapJSONParseError(err error) error {
	return &ClientError{Reason: "json parse error: " + err.Error(), Err: ErrValidation}
}

// wrapHandlerError passes through ClientError, turns user-correctable kinded errors into
// ClientError and wraps everything else as SystemError.
func wrapHandlerError(err error) error {
	if err == nil {
		return nil
	}
	if IsClientError(err) {
		return err
	}
	var uc userCorrectableError
	if errors.As(err, &uc) && uc.UserCorrectable() {
		return &ClientError{Reason: publicMessage(err), Err: err}
	}
	return &SystemError{Err: err}
}

// classify maps an execution error to the envelope fields.
func classify(err error) (kind, message string, retryable bool) {
	var ke kindedError
	if errors.As(err, &ke) {
		var re retryableError
		if errors.As(err, &re) {
			retryable = re.Retryable()
		}
		return ke.ErrorKind(), publicMessage(ke), retryable
	}
	switch {
	case errors.Is(err, ErrShutdown):
		return KindShutdown, ErrShutdown.Error(), false
	case errors.Is(err, ErrToolNotFound):
		return KindToolNotFound, err.Error(), false
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout, ErrTimeout.Error(), true
	case errors.Is(err, context.Canceled):
		return KindTimeout, "tool execution cancelled", true
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		return KindValidation, ce.Reason, ce.Retryable
	}
	return KindInternal, (&SystemError{}).Error(), false
}

// errorKind is the envelope kind of err, used in log lines.
func errorKind(err error) string {
	kind, _, _ := classify(err)
	return kind
}

func publicMessage(err error) string {
	var pm publicMessageError
	if errors.As(err, &pm) {
		return pm.PublicMessage()
	}
	return err.Error()
}
