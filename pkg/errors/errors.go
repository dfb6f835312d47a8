package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 业务错误，携带稳定的错误码、对外消息和应答的 HTTP 状态码
type AppError struct {
	Code    int    // 错误码
	Message string // 对外消息
	Status  int    // HTTP 状态码，0 表示 400
	Err     error  // 原始错误，可选
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码匹配，包装后的副本仍能匹配原哨兵错误
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewError 创建错误（400）
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewErrorWithStatus 创建带 HTTP 状态码的错误
func NewErrorWithStatus(code int, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// Wrap 包装原始错误，返回副本
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Status:  e.Status,
		Err:     err,
	}
}

// Is 判断 err 是否为同错误码的 AppError
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，非业务错误返回 CodeServerError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// GetMessage 获取对外消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// GetStatus 获取 HTTP 状态码，非业务错误返回 500
func GetStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Status == 0 {
			return http.StatusBadRequest
		}
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// ============== 错误码 ==============

const (
	CodeSuccess = 0

	// 请求相关 11000-11999
	CodeInvalidParams = 11002

	// 游戏相关 20000-20999，定义在 internal/game

	// 系统相关 50000-50999
	CodeServerError = 50001
	CodeDBError     = 50002
)

// ============== 预定义错误 ==============

var (
	ErrInvalidParams = NewError(CodeInvalidParams, "invalid parameters")
	ErrServerError   = NewErrorWithStatus(CodeServerError, "internal server error", http.StatusInternalServerError)
	ErrDBError       = NewErrorWithStatus(CodeDBError, "database error", http.StatusInternalServerError)
)
