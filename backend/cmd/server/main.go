package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tachora/backend/config"
	"tachora/backend/internal/api/handler"
	"tachora/backend/internal/api/router"
	"tachora/backend/internal/repository"
	"tachora/backend/internal/service"
	"tachora/backend/pkg/database"
	"tachora/backend/pkg/jwt"
	"tachora/backend/pkg/kvstore"
	applogger "tachora/backend/pkg/logger"
	"tachora/backend/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("kv_backend", cfg.KV.Backend),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 预览与对话记忆的键值存储；Redis 后端连接失败时直接退出，
	//    回退到进程内存储会让多实例之间的预览互不可见
	checks := map[string]handler.HealthCheck{
		"database": sqlDB.PingContext,
	}
	var (
		kv  kvstore.Store
		rdb *redis.Client
		mem *kvstore.MemoryStore
	)
	switch cfg.KV.Backend {
	case "redis":
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Redis 连接失败", zap.Error(err))
		}
		kv = rdb
		checks["kv"] = rdb.Ping
	default:
		mem = kvstore.NewMemoryStore(cfg.Scheduling.KVSweepInterval)
		kv = mem
		logger.Warn("使用进程内键值存储，仅适用于单实例部署")
	}

	// 5. 初始化 JWT 校验器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, kv, logger)
	h := handler.NewHandler(svc, cfg.Scheduling.DefaultLocale, checks)

	// 7. 初始化路由
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // 导出 Excel 需要更长时间
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭键值存储
	if rdb != nil {
		rdb.Close()
	}
	if mem != nil {
		mem.Close()
	}

	logger.Info("服务器已关闭")
}
