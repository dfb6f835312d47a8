package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sudooom.spy/internal/health"
	apperr "sudooom.spy/pkg/errors"
	"sudooom.spy/pkg/response"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	checker *health.Checker
}

func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health 存活检查
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// Ready 就绪检查，已启用的组件不可用时返回 503
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	status := h.checker.Check(c.Request.Context())
	if !status.Healthy() {
		c.JSON(http.StatusServiceUnavailable, response.Response{
			Code:    apperr.CodeServerError,
			Message: "not ready",
			Data:    status,
		})
		return
	}
	response.Success(c, status)
}
