package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tachora/backend/config"
	"tachora/backend/internal/api/handler"
	"tachora/backend/internal/api/middleware"
	"tachora/backend/pkg/jwt"
	"tachora/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时（内存键值存储）写接口不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", h.Health.Health)

	limit := middleware.RateLimit(rdb, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window, logger)

	// ── API v1（仅门店经理可用，且只能操作令牌授权的门店） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr), middleware.RoleAuth("manager", "admin"))

	store := v1.Group("/stores/:store_id")
	store.Use(middleware.StoreAccess())
	{
		week := store.Group("/weeks/:week_id")
		{
			week.GET("/snapshot", h.Schedule.GetSnapshot)
			week.GET("/facts", h.Schedule.GetFacts)
			week.GET("/change-logs", h.Schedule.ListChangeLogs)
			week.GET("/candidates", h.Schedule.ListCandidates)
			week.POST("/constraints/check", h.Schedule.CheckConstraints)

			week.POST("/previews", limit, h.Preview.Create)

			week.GET("/export/xlsx", h.Export.ExportWeek)
			week.GET("/employees/:employee_id/calendar.ics", h.Export.ExportCalendar)

			week.POST("/conversation/candidates", h.Conversation.PresentCandidates)
			week.POST("/conversation/reply", limit, h.Conversation.Reply)
			week.DELETE("/conversation", h.Conversation.Reset)
		}

		previews := store.Group("/previews/:preview_id")
		{
			previews.GET("", h.Preview.Get)
			previews.DELETE("", h.Preview.Discard)
			previews.POST("/apply", limit, h.Preview.Apply)
			previews.POST("/undo", limit, h.Preview.Undo)
		}

		store.GET("/conversation/focus", h.Conversation.GetFocus)
	}

	return r
}
