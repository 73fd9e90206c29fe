package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Code classifies an error for transport mapping.
type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeForbidden         Code = "forbidden"
	CodeUnauthorized      Code = "unauthorized"
	CodeInvalidInput      Code = "invalid_input"
	CodeDuplicateKey      Code = "duplicate_key"
	CodeAlreadyRegistered Code = "already_registered"
	CodePolicyExpired     Code = "policy_expired"
	CodeInvalidTransition Code = "invalid_transition"
	CodeUpstreamTimeout   Code = "upstream_timeout"
	CodeStorage           Code = "storage"
)

// Error is a classified application error.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match two classified errors by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a classification to an underlying error.
func Wrap(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(CodeNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(CodeForbidden, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return New(CodeUnauthorized, format, args...)
}

func InvalidInput(format string, args ...interface{}) *Error {
	return New(CodeInvalidInput, format, args...)
}

func DuplicateKey(format string, args ...interface{}) *Error {
	return New(CodeDuplicateKey, format, args...)
}

func AlreadyRegistered(format string, args ...interface{}) *Error {
	return New(CodeAlreadyRegistered, format, args...)
}

func PolicyExpired(format string, args ...interface{}) *Error {
	return New(CodePolicyExpired, format, args...)
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return New(CodeInvalidTransition, format, args...)
}

func UpstreamTimeout(format string, args ...interface{}) *Error {
	return New(CodeUpstreamTimeout, format, args...)
}

func Storage(cause error) *Error {
	return Wrap(CodeStorage, cause, "storage failure")
}

// CodeOf extracts the classification of err, defaulting to CodeStorage for
// unclassified errors so that raw driver failures never leak details.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStorage
}

var statusByCode = map[Code]int{
	CodeNotFound:          http.StatusNotFound,
	CodeForbidden:         http.StatusForbidden,
	CodeUnauthorized:      http.StatusUnauthorized,
	CodeInvalidInput:      http.StatusBadRequest,
	CodeDuplicateKey:      http.StatusConflict,
	CodeAlreadyRegistered: http.StatusConflict,
	CodePolicyExpired:     http.StatusUnprocessableEntity,
	CodeInvalidTransition: http.StatusConflict,
	CodeUpstreamTimeout:   http.StatusGatewayTimeout,
	CodeStorage:           http.StatusInternalServerError,
}

// HTTPStatus maps an error to the status code of its classification.
func HTTPStatus(err error) int {
	if s, ok := statusByCode[CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// HTTP converts err into an echo HTTP error. Storage failures get a generic
// message; the underlying cause rides along as the HTTPError's Internal so
// the request logger records it without it ever reaching the client.
func HTTP(err error) *echo.HTTPError {
	code := CodeOf(err)
	if code == CodeStorage {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
	var e *Error
	if errors.As(err, &e) {
		return echo.NewHTTPError(statusByCode[code], e.Message)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}
