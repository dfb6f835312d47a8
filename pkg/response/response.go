package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperr "sudooom.spy/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    apperr.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应（201）
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    apperr.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// ErrorFromAppError 根据 AppError 返回错误响应
// 非业务错误统一返回 500，不暴露原始错误信息
func ErrorFromAppError(c *gin.Context, err error) {
	c.JSON(apperr.GetStatus(err), Response{
		Code:    apperr.GetCode(err),
		Message: apperr.GetMessage(err),
		Data:    nil,
	})
}

// InvalidParams 参数错误响应
func InvalidParams(c *gin.Context, message string) {
	if message == "" {
		message = apperr.ErrInvalidParams.Message
	}
	c.JSON(http.StatusBadRequest, Response{
		Code:    apperr.CodeInvalidParams,
		Message: message,
		Data:    nil,
	})
}
