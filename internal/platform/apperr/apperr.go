// Package apperr classifies service errors into the small set of kinds the
// HTTP layer knows how to answer: validation, conflict, not-found and auth.
package apperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	default:
		return "internal"
	}
}

// Error is a classified error. Op names the service operation that failed
// (e.g. "scheduling.CreateAppointment").
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by identity first, then by Kind+Msg so that
// errors rebuilt with a different Op still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || (t.Kind == e.Kind && t.Msg != "" && t.Msg == e.Msg)
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

func NotFound(op, msg string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

// Wrap tags err with the operation. A nil err yields nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return &Error{Kind: ae.Kind, Op: op, Msg: ae.Msg, Err: ae.Err}
	}
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// OpOf returns the operation recorded on err, if any.
func OpOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Op
	}
	return ""
}

func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// HTTPError converts err into an echo error carrying the mapped status code.
// Internal errors are not echoed back to the client.
func HTTPError(err error) *echo.HTTPError {
	kind := KindOf(err)
	if kind == KindInternal {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(kind.HTTPStatus(), err.Error())
}

// Reject tags err with op and logs it on the request logger together with
// the entity it concerns. Internal errors log at error level, the rest at warn.
func Reject(ctx context.Context, op string, entityID int64, err error) error {
	if err == nil {
		return nil
	}
	err = Wrap(op, err)
	kind := KindOf(err)

	logger := zerolog.Ctx(ctx)
	evt := logger.Warn()
	if kind == KindInternal {
		evt = logger.Error()
	}
	evt.Err(err).
		Str("error_kind", kind.String()).
		Str("op", op).
		Int64("entity_id", entityID).
		Msg("operation rejected")
	return err
}
