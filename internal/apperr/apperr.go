// Package apperr defines the errors that services report to clients.
//
// Each error carries a Detail that is safe to show to a caller. Anything
// else that escapes a service is repackaged by Boundary so that internal
// causes only reach the log.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/gommon/log"
)

// UnexpectedDetail is shown when an error has no client-facing detail.
const UnexpectedDetail = "An unexpected error occurred."

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Detail string
}

func (e *NotFoundError) Error() string { return e.Detail }

// ValidationError reports malformed input or a violated business rule.
type ValidationError struct {
	Detail string
	Cause  error
}

func (e *ValidationError) Error() string { return e.Detail }

func (e *ValidationError) Unwrap() error { return e.Cause }

// ForbiddenError reports an operation the caller may not perform.
type ForbiddenError struct {
	Detail string
}

func (e *ForbiddenError) Error() string { return e.Detail }

func NotFound(format string, args ...any) error {
	return &NotFoundError{Detail: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &ForbiddenError{Detail: fmt.Sprintf(format, args...)}
}

// IsTyped reports whether err (or something it wraps) is one of the errors
// of this package.
func IsTyped(err error) bool {
	var nf *NotFoundError
	var ve *ValidationError
	var fe *ForbiddenError
	return errors.As(err, &nf) || errors.As(err, &ve) || errors.As(err, &fe)
}

// Boundary is called by services right before returning err to a caller.
// Typed errors pass through unchanged; any other error is logged with op and
// replaced by a generic ValidationError that keeps the cause for errors.Is.
func Boundary(op string, err error) error {
	if err == nil || IsTyped(err) {
		return err
	}
	log.Errorf("%s: %v", op, err)
	return &ValidationError{Detail: UnexpectedDetail, Cause: err}
}

// Status maps err to an HTTP status code and the detail shown to clients.
func Status(err error) (int, string) {
	var nf *NotFoundError
	var ve *ValidationError
	var fe *ForbiddenError
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound, nf.Detail
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Detail
	case errors.As(err, &fe):
		return http.StatusForbidden, fe.Detail
	default:
		return http.StatusInternalServerError, UnexpectedDetail
	}
}
