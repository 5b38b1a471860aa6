package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind standardizes failure semantics across the progress engine.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTransient  Kind = "transient"
	KindFatalSetup Kind = "fatal_setup"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// Error is the canonical tagged error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Kind)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Kind)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: strings.TrimSpace(op), Message: strings.TrimSpace(message)}
}

// Wrap annotates err with kind. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: strings.TrimSpace(op), Message: err.Error(), Cause: err}
}

func Validation(op, message string) error { return New(KindValidation, op, message) }

func FatalSetup(op string, err error) error { return Wrap(KindFatalSetup, op, err) }

// KindOf extracts the kind of a tagged error, classifying untagged ones.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return Classify(err)
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Classify maps store/driver failures into a Kind.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case code == "28P01", code == "28000", code == "3D000":
			return KindFatalSetup // bad password / auth spec / unknown database
		case strings.HasPrefix(code, "08"):
			return KindTransient // connection exception class
		case code == "40001", code == "40P01", code == "55P03":
			return KindTransient // serialization / deadlock / lock_not_available
		case strings.HasPrefix(code, "22"), strings.HasPrefix(code, "23"):
			return KindValidation // data exception / integrity constraint
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return KindFatalSetup
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "authentication failed"):
		return KindFatalSetup
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "connection reset"):
		return KindTransient
	}
	return KindInternal
}
