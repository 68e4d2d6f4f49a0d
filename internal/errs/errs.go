// Package errs provides the structured error kinds shared across taxfolio services.
package errs

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind categorizes an error for propagation and HTTP mapping.
type Kind int

const (
	// KindValidation indicates missing or invalid caller input.
	KindValidation Kind = iota
	// KindNotFound indicates a missing record.
	KindNotFound
	// KindConflict indicates a mutation rejected by record state, e.g. a locked trade.
	KindConflict
	// KindUpstream indicates an external collaborator failure.
	KindUpstream
	// KindInvariant indicates a programming-contract violation, never user-facing.
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	case KindInvariant:
		return "invariant"
	}
	return "unknown"
}

// E is an error with a kind attached.
type E struct {
	kind  Kind
	msg   string
	cause error
}

func (e *E) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Unwrap returns the underlying cause, if any.
func (e *E) Unwrap() error { return e.cause }

// Kind returns the error category.
func (e *E) Kind() Kind { return e.kind }

// Message returns the message without the kind prefix or cause chain.
func (e *E) Message() string { return e.msg }

// Validation constructs a caller-input error.
func Validation(format string, args ...any) error {
	return &E{kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFound constructs a missing-record error.
func NotFound(format string, args ...any) error {
	return &E{kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

// Conflict constructs a state-conflict error.
func Conflict(format string, args ...any) error {
	return &E{kind: KindConflict, msg: fmt.Sprintf(format, args...)}
}

// Upstream wraps a collaborator failure.
func Upstream(cause error, format string, args ...any) error {
	return &E{kind: KindUpstream, msg: fmt.Sprintf(format, args...), cause: cause}
}

// Invariant constructs a contract-violation error.
func Invariant(format string, args ...any) error {
	return &E{kind: KindInvariant, msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err or any error in its chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *E
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}

// HTTPStatus maps an error to the status code the web layer should answer with.
func HTTPStatus(err error) int {
	var e *E
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
