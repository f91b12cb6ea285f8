package rpc

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dynamicdna/academy/pkg/repository"
)

// Code is a wire error code, compatible with tRPC clients.
type Code string

const (
	CodeParseError          Code = "PARSE_ERROR"
	CodeBadRequest          Code = "BAD_REQUEST"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeMethodNotSupported  Code = "METHOD_NOT_SUPPORTED"
	CodeUnsupportedMedia    Code = "UNSUPPORTED_MEDIA_TYPE"
	CodeTooManyRequests     Code = "TOO_MANY_REQUESTS"
	CodeInternalServerError Code = "INTERNAL_SERVER_ERROR"
)

// Fixed messages clients match on.
const (
	MsgUnauthorized  = "Please login (10001)"
	MsgAdminRequired = "Admin access required"
)

var codeTable = map[Code]struct {
	status int
	rpc    int
}{
	CodeParseError:          {http.StatusBadRequest, -32700},
	CodeBadRequest:          {http.StatusBadRequest, -32600},
	CodeUnauthorized:        {http.StatusUnauthorized, -32001},
	CodeForbidden:           {http.StatusForbidden, -32003},
	CodeNotFound:            {http.StatusNotFound, -32004},
	CodeConflict:            {http.StatusConflict, -32009},
	CodeMethodNotSupported:  {http.StatusMethodNotAllowed, -32005},
	CodeUnsupportedMedia:    {http.StatusUnsupportedMediaType, -32015},
	CodeTooManyRequests:     {http.StatusTooManyRequests, -32029},
	CodeInternalServerError: {http.StatusInternalServerError, -32603},
}

// HTTPStatus maps the code to its HTTP status.
func (c Code) HTTPStatus() int {
	if v, ok := codeTable[c]; ok {
		return v.status
	}
	return http.StatusInternalServerError
}

func (c Code) rpcCode() int {
	if v, ok := codeTable[c]; ok {
		return v.rpc
	}
	return -32603
}

// FieldError is one input validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a structured procedure failure returned to the caller.
type Error struct {
	Code    Code
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a new *Error; cause is logged, never sent to clients.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

func Unauthorized() *Error { return &Error{Code: CodeUnauthorized, Message: MsgUnauthorized} }

func Forbidden() *Error { return &Error{Code: CodeForbidden, Message: MsgAdminRequired} }

func NotFound(what string) *Error { return Errorf(CodeNotFound, "%s not found", what) }

// AsError converts any error to an *Error. Repository sentinels get their
// own codes; anything else is hidden behind INTERNAL_SERVER_ERROR.
func AsError(err error) *Error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, repository.ErrDatabaseUnavailable):
		return Wrap(CodeInternalServerError, "Database not available", err)
	case errors.Is(err, repository.ErrNotFound):
		return Wrap(CodeNotFound, "Record not found", err)
	case errors.Is(err, repository.ErrConflict):
		return Wrap(CodeConflict, "Record already exists", err)
	}
	return Wrap(CodeInternalServerError, "Internal server error", err)
}
