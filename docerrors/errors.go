// Package docerrors is the shared error taxonomy of spec.md §7, trimmed and
// generalized from the teacher's internal/errors.UnifiedError: one struct,
// one set of kind constructors, errors.As/Is-compatible wrapping.
package docerrors

import (
	"errors"
	"fmt"
)

// Kind is one of the nine error kinds below (authentication and
// authorization failures are the two separate kinds Unauthorized and
// Forbidden).
type Kind string

const (
	BadRequest        Kind = "BAD_REQUEST"
	Unauthorized      Kind = "UNAUTHORIZED"
	Forbidden         Kind = "FORBIDDEN"
	NotFound          Kind = "NOT_FOUND"
	Conflict          Kind = "CONFLICT"
	PreconditionFailed Kind = "PRECONDITION_FAILED"
	NotSupported      Kind = "NOT_SUPPORTED"
	NotModified       Kind = "NOT_MODIFIED"
	Internal          Kind = "INTERNAL"
)

// Error is the single error type returned across every package boundary in
// this module.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Op        string // operation/verb that failed, e.g. "put", "query"
	Retryable bool
	Causes    []*Error // populated on a Transaction abort (one per failed op)
	Cause     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("docstore: %s: [%s:%s] %s", e.Op, e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("docstore: [%s:%s] %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(k Kind, code, msg string, retryable bool) *Error {
	return &Error{Kind: k, Code: code, Message: msg, Retryable: retryable}
}

func New(k Kind, code, message string) *Error       { return newErr(k, code, message, false) }
func NewBadRequest(code, message string) *Error     { return newErr(BadRequest, code, message, false) }
func NewNotFound(code, message string) *Error       { return newErr(NotFound, code, message, false) }
func NewConflict(code, message string) *Error       { return newErr(Conflict, code, message, true) }
func NewPreconditionFailed(code, message string) *Error {
	return newErr(PreconditionFailed, code, message, false)
}
func NewNotSupported(code, message string) *Error { return newErr(NotSupported, code, message, false) }
func NewNotModified(code, message string) *Error  { return newErr(NotModified, code, message, false) }
func NewUnauthorized(code, message string) *Error { return newErr(Unauthorized, code, message, false) }
func NewForbidden(code, message string) *Error    { return newErr(Forbidden, code, message, false) }
func NewInternal(code, message string) *Error     { return newErr(Internal, code, message, false) }

// NewTimeout builds a retryable Internal error distinguishable from logical
// errors, per spec.md §5 ("timeout exhaustion raises a transient error
// distinguishable from logical errors").
func NewTimeout(code, message string) *Error {
	return newErr(Internal, code, message, true)
}

// ErrClosed is the closed-store error value. Neither the facade nor the
// adapters in this module track a closed state, so none of them returns it.
var ErrClosed = New(Internal, "STORE_CLOSED", "store is closed")

// WithOp returns a copy of e with Op set.
func (e *Error) WithOp(op string) *Error {
	c := *e
	c.Op = op
	return &c
}

// WithCause returns a copy of e with Cause set.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

// Wrap wraps err as an Internal error unless it is already an *Error, in
// which case the original Kind/Code are preserved and op/message layered on.
func Wrap(err error, op, message string) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		c := *existing
		c.Op = op
		if message != "" {
			c.Message = message
		}
		c.Cause = err
		return &c
	}
	return &Error{Kind: Internal, Code: "WRAPPED", Message: message, Op: op, Cause: err}
}

// Is reports whether err's Kind equals k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// Abort builds a Conflict error carrying one Causes entry per failed
// Transaction operation (§7 propagation policy for TRANSACT).
func Abort(causes []*Error) *Error {
	e := newErr(Conflict, "TRANSACTION_ABORTED", "transaction aborted: precondition failed", false)
	e.Causes = causes
	return e
}
