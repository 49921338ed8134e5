package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/skosovsky/plantool/domain"
)

type OperationErrorCode string

const (
	OperationErrorValidation      OperationErrorCode = "validation_failed"
	OperationErrorEncodeFailed    OperationErrorCode = "encode_failed"
	OperationErrorDecodeFailed    OperationErrorCode = "decode_failed"
	OperationErrorTransportFailed OperationErrorCode = "transport_failed"
	OperationErrorTimeout         OperationErrorCode = "timeout"
	OperationErrorQueryFailed     OperationErrorCode = "query_failed"
)

type OperationError struct {
	Code       OperationErrorCode
	Operation  string
	Collection string
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("qdrant operation failed (op=%s collection=%s code=%s status=%d)",
		e.Operation, e.Collection, e.Code, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *OperationError) Unwrap() error { return e.Cause }

// unavailable reports whether the index could not serve the request at all, as opposed to
// rejecting a malformed one.
func (e *OperationError) unavailable() bool {
	switch e.Code {
	case OperationErrorTransportFailed, OperationErrorTimeout:
		return true
	case OperationErrorQueryFailed:
		return e.StatusCode == 0 || e.StatusCode == http.StatusNotFound || e.StatusCode >= 500
	default:
		return false
	}
}

func opErr(op, collection string, code OperationErrorCode, msg string, cause error) error {
	return &OperationError{Code: code, Operation: op, Collection: collection, Message: msg, Cause: cause}
}

func classifyHTTPCallError(op, collection, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, collection, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, collection, OperationErrorTimeout, message, err)
	}
	return opErr(op, collection, OperationErrorTransportFailed, message, err)
}

// isUnavailable reports whether err means the index is down (and should trip the breaker).
func isUnavailable(err error) bool {
	var oe *OperationError
	return errors.As(err, &oe) && oe.unavailable()
}

// toDomain maps unavailability and open breakers to IndexUnavailableError; other failures are
// returned unchanged.
func toDomain(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.IndexUnavailableError(op, "circuit open", err)
	}
	if isUnavailable(err) {
		return domain.IndexUnavailableError(op, "vector index unavailable", err)
	}
	return err
}
