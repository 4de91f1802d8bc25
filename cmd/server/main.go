package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoka/minhas-obras-sub000/internal/config"
	"github.com/jmoka/minhas-obras-sub000/internal/db"
	"github.com/jmoka/minhas-obras-sub000/internal/handler"
	"github.com/jmoka/minhas-obras-sub000/internal/router"
	"github.com/jmoka/minhas-obras-sub000/internal/service"
	"github.com/jmoka/minhas-obras-sub000/internal/tracking"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 按配置补种管理员账号
	if err := db.EnsureAdmin(cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		log.Fatalf("failed to ensure admin user: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	geo := service.NewGeoService(cfg.GeoLookupBaseURL, cfg.GeoCacheTTL, logger)

	// 系统设置中的地址覆盖优先于环境变量
	if settings, err := service.NewSystemSettingService(db.DB).GetSettings(); err == nil {
		geo.SetBaseURL(settings.GeoLookupBaseURL)
	} else {
		logger.Warn("failed to load system settings", "error", err)
	}

	trackers := tracking.NewRegistry(10*time.Minute, logger)
	go trackers.StartJanitor(ctx)

	api := handler.NewAPI(db.DB, geo, trackers, logger, cfg.UploadDir, cfg.UploadURLPath)

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg.SessionSecret, cfg.UploadDir, cfg.UploadURLPath)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
