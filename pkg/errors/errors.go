// Package errors provides coded errors shared by the CLI, the terminal
// board and the HTTP API, which reports the code in its error envelope.
//
// The layout core never fails: degenerate geometry, exhausted placement
// attempts, unmeasurable viewports and dangling relations all have
// deterministic fallbacks. Codes here describe bad input (INVALID_*),
// missing boards, entities or files (*NOT_FOUND) and unreachable entity
// sources (SOURCE_UNAVAILABLE).
//
//	err := errors.New(errors.ErrCodeInvalidEntity, "duplicate entity id %q", id)
//	errors.Is(err, errors.ErrCodeInvalidEntity) // true
//	errors.HTTPStatus(err)                      // 400
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code is a machine-readable error code.
type Code string

const (
	// Bad input
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidEntity   Code = "INVALID_ENTITY"
	ErrCodeInvalidRelation Code = "INVALID_RELATION"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidViewport Code = "INVALID_VIEWPORT"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Missing resources
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeBoardNotFound  Code = "BOARD_NOT_FOUND"
	ErrCodeEntityNotFound Code = "ENTITY_NOT_FOUND"
	ErrCodeFileNotFound   Code = "FILE_NOT_FOUND"

	// Entity sources and other collaborators
	ErrCodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"
	ErrCodeTimeout           Code = "TIMEOUT"

	// Everything else
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error carries a Code alongside its message and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error with a formatted message and cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// coded returns the outermost *Error in err's chain.
func coded(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether the outermost coded error in err's chain has code.
func Is(err error, code Code) bool {
	e, ok := coded(err)
	return ok && e.Code == code
}

// GetCode returns the code of the outermost coded error, or "".
func GetCode(err error) Code {
	if e, ok := coded(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix and cause, or
// err.Error() for uncoded errors.
func UserMessage(err error) string {
	if e, ok := coded(err); ok {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps the code of err to an HTTP status. Uncoded errors are
// internal server errors.
func HTTPStatus(err error) int {
	code := GetCode(err)
	switch {
	case strings.HasSuffix(string(code), "NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(string(code), "INVALID_"):
		return http.StatusBadRequest
	case code == ErrCodeSourceUnavailable:
		return http.StatusBadGateway
	case code == ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case code == ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
