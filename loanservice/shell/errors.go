package shell

import (
	"errors"
	"fmt"

	"github.com/booklend/library-services-go/loanservice/core"
)

// ErrTransport marks connection-level remote failures: timeouts, connection
// refused, broken connections. Only errors wrapping this sentinel are
// retried; well-formed remote error responses never are.
var ErrTransport = errors.New("transport failure")

// Kind classifies workflow failures into the stable taxonomy exposed to
// clients. Every kind maps to exactly one HTTP status code at the API edge.
type Kind int

const (
	// KindNotFound - a referenced entity does not exist (404).
	KindNotFound Kind = iota + 1

	// KindInvalidOperation - a business rule rejected the request (400).
	KindInvalidOperation

	// KindDependencyUnavailable - a leaf service could not be reached after
	// exhausting retries (503).
	KindDependencyUnavailable

	// KindInternal - an unexpected fault; details never leak to callers (500).
	KindInternal
)

// Stable detail strings for failures not produced by core decision rules.
const (
	DetailUserNotFound           = "User not found"
	DetailBookNotFound           = "Book not found"
	DetailLoanNotFound           = "Loan not found"
	DetailLoanNotFoundOrReturned = "Loan not found or already returned"
	DetailInsufficientCopies     = "Not enough available copies"
	DetailUserServiceUnavailable = "User Service unavailable"
	DetailBookServiceUnavailable = "Book Service unavailable"
	DetailInternalError          = "Internal server error"
)

// Error is the workflow-boundary error type. It pairs a taxonomy kind with
// a machine-stable detail string and optionally wraps the underlying cause.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.cause)
	}

	return e.Detail
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// NotFound builds a KindNotFound error with the given detail.
func NotFound(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

// InvalidOperation builds a KindInvalidOperation error with the given detail.
func InvalidOperation(detail string) *Error {
	return &Error{Kind: KindInvalidOperation, Detail: detail}
}

// DependencyUnavailable builds a KindDependencyUnavailable error wrapping
// the transport-level cause.
func DependencyUnavailable(detail string, cause error) *Error {
	return &Error{Kind: KindDependencyUnavailable, Detail: detail, cause: cause}
}

// Internal builds a KindInternal error. The detail shown to callers is the
// generic internal message; the cause stays wrapped for logging only.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Detail: DetailInternalError, cause: cause}
}

// AsWorkflowError normalizes any error crossing the workflow boundary:
// taxonomy errors pass through, core rule violations become
// InvalidOperation, everything else is reported as Internal.
func AsWorkflowError(err error) *Error {
	var workflowErr *Error
	if errors.As(err, &workflowErr) {
		return workflowErr
	}

	var violation core.RuleViolation
	if errors.As(err, &violation) {
		return InvalidOperation(violation.Reason)
	}

	return Internal(err)
}

// KindOf returns the taxonomy kind of err, defaulting to KindInternal for
// untyped errors.
func KindOf(err error) Kind {
	var workflowErr *Error
	if errors.As(err, &workflowErr) {
		return workflowErr.Kind
	}

	return KindInternal
}

// DetailOf returns the client-visible detail of err, defaulting to the
// generic internal message for untyped errors.
func DetailOf(err error) string {
	var workflowErr *Error
	if errors.As(err, &workflowErr) {
		return workflowErr.Detail
	}

	return DetailInternalError
}
