// Package httperr defines the closed set of failures that may cross the HTTP
// boundary and the single handler that turns them into responses. Failure
// kinds are tagged at the point of failure, so the handler is a plain switch
// instead of sniffing driver or library error shapes.
package httperr

import (
	"fmt"
	"net/http"
	"strings"
)

// Kind tags the specific failure shapes that production mode rewrites into
// user-safe messages.
type Kind int

const (
	KindNone Kind = iota
	KindCast
	KindDuplicate
	KindValidation
	KindTokenInvalid
	KindTokenExpired
)

// Error is the uniform client-facing failure. Operational errors carry
// messages safe to surface verbatim; anything else is masked in production.
type Error struct {
	Code        int    // HTTP status code
	Status      string // "fail" for 4xx, "error" for 5xx
	Message     string
	Kind        Kind
	Operational bool
	Err         error // underlying cause, for logs and development output
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func statusLabel(code int) string {
	if code >= 500 {
		return "error"
	}
	return "fail"
}

// New builds an operational error with the given status code.
func New(code int, msg string) *Error {
	return &Error{Code: code, Status: statusLabel(code), Message: msg, Operational: true}
}

func BadRequest(msg string) *Error   { return New(http.StatusBadRequest, msg) }
func Unauthorized(msg string) *Error { return New(http.StatusUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(http.StatusForbidden, msg) }
func NotFound(msg string) *Error     { return New(http.StatusNotFound, msg) }
func Internal(msg string) *Error     { return New(http.StatusInternalServerError, msg) }

// CastError marks a malformed identifier or value in the request path/query.
func CastError(field, value string) *Error {
	e := BadRequest(fmt.Sprintf("Invalid %s of %s", field, value))
	e.Kind = KindCast
	return e
}

// DuplicateField marks a unique-constraint violation on the named field.
func DuplicateField(value string) *Error {
	e := BadRequest(fmt.Sprintf("Duplicate Field value (%s). please use another value", value))
	e.Kind = KindDuplicate
	return e
}

// ValidationFailed joins all field validation messages into one 400.
func ValidationFailed(msgs ...string) *Error {
	e := BadRequest("Invalid input data. " + strings.Join(msgs, ". "))
	e.Kind = KindValidation
	return e
}

// TokenInvalid marks a signature or format failure on a session token.
func TokenInvalid() *Error {
	e := Unauthorized("Invalid token please log in again!")
	e.Kind = KindTokenInvalid
	return e
}

// TokenExpired marks a session token past its expiry.
func TokenExpired() *Error {
	e := Unauthorized("Your token has expired! please log in again :)")
	e.Kind = KindTokenExpired
	return e
}

// Wrap converts an unexpected failure into a non-operational 500. The cause
// is kept for server-side logging but never shown to production clients.
func Wrap(err error) *Error {
	return &Error{
		Code:    http.StatusInternalServerError,
		Status:  "error",
		Message: "Something went very wrong!",
		Err:     err,
	}
}
