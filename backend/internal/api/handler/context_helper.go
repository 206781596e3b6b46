package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"tachora/backend/internal/service"
	"tachora/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetStoreWeek 提取并校验路径中的 store_id 与 week_id
func MustGetStoreWeek(c *gin.Context) (storeID, weekID string, ok bool) {
	storeID = c.Param("store_id")
	weekID = c.Param("week_id")
	if storeID == "" {
		response.BadRequest(c, 14000, "store_id 不能为空")
		return "", "", false
	}
	if _, err := service.ParseWeekID(weekID); err != nil {
		response.BadRequest(c, 14016, "周标识格式错误，应为 YYYY-Www")
		return "", "", false
	}
	return storeID, weekID, true
}

// requestLocale 取请求体中的 locale，其次 Accept-Language 的首选项，最后为默认值
func requestLocale(c *gin.Context, explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if al := c.GetHeader("Accept-Language"); al != "" {
		first := strings.TrimSpace(strings.SplitN(al, ",", 2)[0])
		if i := strings.Index(first, ";"); i >= 0 {
			first = first[:i]
		}
		if first != "" && first != "*" {
			return first
		}
	}
	return fallback
}
