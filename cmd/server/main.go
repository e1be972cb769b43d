package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/cinelog/internal/config"
	"github.com/user/cinelog/internal/handler"
	"github.com/user/cinelog/internal/repository"
	"github.com/user/cinelog/internal/router"
	"github.com/user/cinelog/internal/service"
	"github.com/user/cinelog/internal/utils"
)

func main() {
	logger := utils.NewLogger("Server")

	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		logger.Info("未找到 .env 文件，使用系统环境变量")
	}

	cfg := config.Load()
	utils.SetLogLevel(cfg.LogLevel)

	// 初始化数据库
	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("数据库连接失败", "err", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	repos := repository.NewRepositories(db)
	utils.InitCache()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 实时消息：单实例直接走本地 Hub，多实例通过 Postgres NOTIFY 转发
	hub := service.NewHub()
	var notifier service.Notifier = hub
	if cfg.RealtimePGNotify {
		relay := repository.NewNotifyRelay(db, cfg.DatabaseURL)
		notifier = relay
		go func() {
			if err := relay.Run(ctx, hub); err != nil {
				logger.Error("实时消息转发退出", "err", err)
			}
		}()
	}

	tmdb := service.NewTMDBClient(cfg)
	if cfg.TMDBAPIKey == "" {
		logger.Warn("TMDB_API_KEY 未设置，电影搜索和添加将不可用")
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	h := handler.NewHandler(repos, cfg, tmdb, hub, notifier)
	r := router.New(h, "./web/templates")
	r.Static("/static", "./web/static")

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
		// 不设置 WriteTimeout，SSE 连接需要长时间保持；收到信号时随 ctx 一起结束
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("服务器启动", "addr", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("服务器启动失败", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器强制关闭", "err", err)
	}

	logger.Info("服务器已退出")
}
