package common

import (
	"errors"
	"fmt"
)

// AppError 应用级错误结构
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so callers can test
// errors.Is(err, common.ErrMalformedInput) regardless of message.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WrapError 包装错误
func WrapError(code, message string, err error) error {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewError 创建新错误
func NewError(code, message string) error {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// CodeOf returns the code of the first AppError in the chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// 错误码常量
const (
	ErrCodeMalformedInput   = "MALFORMED_INPUT"
	ErrCodeEmptyRequirement = "EMPTY_REQUIREMENT"
	ErrCodeInvalidCount     = "INVALID_COUNT"
	ErrCodeGitHubAPI        = "GITHUB_API_ERROR"
	ErrCodeDatabase         = "DATABASE_ERROR"
	ErrCodeAIProcessing     = "AI_PROCESSING_ERROR"
	ErrCodeNotification     = "NOTIFICATION_ERROR"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks.
var (
	ErrMalformedInput   = NewError(ErrCodeMalformedInput, "malformed input")
	ErrEmptyRequirement = NewError(ErrCodeEmptyRequirement, "empty requirement")
	ErrInvalidCount     = NewError(ErrCodeInvalidCount, "invalid count")
	ErrNotFound         = NewError(ErrCodeNotFound, "not found")
)
