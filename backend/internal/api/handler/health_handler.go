package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"tachora/backend/internal/dto"
	"tachora/backend/pkg/response"
)

// HealthCheck 单个依赖的探活函数
type HealthCheck func(ctx context.Context) error

// HealthHandler 健康检查
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthHandler 创建 HealthHandler；checks 为空时只报告进程存活
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Health 依次探测数据库与键值存储
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := dto.HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			out.Status = "degraded"
			out.Checks[name] = err.Error()
			continue
		}
		out.Checks[name] = "ok"
	}

	if out.Status != "ok" {
		response.ErrorWithData(c, http.StatusServiceUnavailable, 50300, "依赖不可用", out)
		return
	}
	response.OK(c, out)
}
