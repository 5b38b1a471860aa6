package apierr

import (
	"errors"
	"net/http"

	"github.com/kocahmet1/ultrasat-progress/internal/platform/apperr"
)

// Error is what the HTTP edge renders: a status, a stable code and the
// underlying failure.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return http.StatusText(e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// InvalidRequest wraps a body or query that could not be decoded.
func InvalidRequest(err error) *Error {
	return New(http.StatusBadRequest, "invalid_request", err)
}

// From resolves err to an edge error. An *Error anywhere in the chain wins;
// otherwise the engine kind picks the status. Unknown kinds become 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch kind := apperr.KindOf(err); kind {
	case apperr.KindValidation:
		return New(http.StatusBadRequest, string(kind), err)
	case apperr.KindNotFound:
		return New(http.StatusNotFound, string(kind), err)
	case apperr.KindTransient:
		return New(http.StatusServiceUnavailable, string(kind), err)
	default:
		return New(http.StatusInternalServerError, string(apperr.KindInternal), err)
	}
}
