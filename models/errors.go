package models

import (
	"errors"
	"net/http"
)

// ErrorCode 错误代码
type ErrorCode string

const (
	ErrInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrFileTooLarge        ErrorCode = "FILE_TOO_LARGE"
	ErrNoExtractableText   ErrorCode = "NO_EXTRACTABLE_TEXT"
	ErrExtraction          ErrorCode = "EXTRACTION_ERROR"
	ErrTranslationTimeout  ErrorCode = "TRANSLATION_TIMEOUT"
	ErrTranslationRejected ErrorCode = "TRANSLATION_REJECTED"
	ErrFontUnavailable     ErrorCode = "FONT_UNAVAILABLE"
	ErrRender              ErrorCode = "RENDER_ERROR"
	ErrInternal            ErrorCode = "INTERNAL_ERROR"
	ErrUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrAdminDisabled       ErrorCode = "ADMIN_DISABLED"
	ErrCanceled            ErrorCode = "REQUEST_CANCELED"
)

// StatusClientClosedRequest 客户端在响应前断开（非标准状态码，同 nginx）
const StatusClientClosedRequest = 499

// AppError 应用错误，Message 面向用户，Cause 保留给日志
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError 创建应用错误
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails 创建带详情的应用错误
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// CodeOf 返回错误链上第一个 AppError 的代码，没有则为 ErrInternal
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsCode 判断错误链上是否有指定代码
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatus 错误代码对应的 HTTP 状态码
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrNoExtractableText, ErrExtraction:
		return http.StatusUnprocessableEntity
	case ErrTranslationTimeout:
		return http.StatusGatewayTimeout
	case ErrTranslationRejected:
		return http.StatusBadGateway
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrAdminDisabled:
		return http.StatusForbidden
	case ErrCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
