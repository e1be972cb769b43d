package service

import (
	"errors"
	"net/http"
)

// 错误类别，使用 errors.Is 判断
var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
	ErrValidation   = errors.New("validation error")
	ErrUpstream     = errors.New("upstream error")
	ErrAuthRequired = errors.New("authentication required")
	ErrInternal     = errors.New("internal error")
)

// GenericFailureMessage 非业务错误对外统一提示
const GenericFailureMessage = "Something went wrong. Please try again."

// Error 带有对外提示的业务错误
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// NotFound 构造 ErrNotFound
func NotFound(msg string) error { return newError(ErrNotFound, msg) }

// AccessDenied 构造 ErrAccessDenied
func AccessDenied(msg string) error { return newError(ErrAccessDenied, msg) }

// Validation 构造 ErrValidation
func Validation(msg string) error { return newError(ErrValidation, msg) }

// Upstream 构造 ErrUpstream
func Upstream(msg string) error { return newError(ErrUpstream, msg) }

// AuthRequired 构造 ErrAuthRequired
func AuthRequired(msg string) error { return newError(ErrAuthRequired, msg) }

// Internal 构造 ErrInternal
func Internal(msg string) error { return newError(ErrInternal, msg) }

// Message 返回可以展示给用户的错误信息，存储层原始错误不会外泄
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return GenericFailureMessage
}

// StatusCode 错误类别对应的 HTTP 状态码
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ErrAuthRequired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
