package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"driftmail/backend/internal/addr"
	"driftmail/backend/internal/config"
	"driftmail/backend/internal/health"
	"driftmail/backend/internal/logger"
	"driftmail/backend/internal/monitoring"
	"driftmail/backend/internal/service"
	"driftmail/backend/internal/smtp"
	"driftmail/backend/internal/storage"
	"driftmail/backend/internal/storage/memory"
	"driftmail/backend/internal/storage/redis"
	sqlstore "driftmail/backend/internal/storage/sql"
	httptransport "driftmail/backend/internal/transport/http"
	"driftmail/backend/internal/websocket"
)

// main 启动同时包含 HTTP API 与 SMTP 接收的综合服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.File,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting driftmail server",
		zap.Strings("domains", cfg.Mailbox.AllowedDomains),
		zap.Duration("default_ttl", cfg.Mailbox.DefaultTTL),
		zap.Duration("sweep_interval", cfg.Sweep.Interval),
	)

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			log.Fatal("failed to initialize database storage", zap.Error(err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer store.Close()

	metrics := monitoring.NewMetrics()
	healthChecker := health.NewChecker(store, log)

	// Redis 限流器（可选）
	var rateLimiter *redis.Limiter
	if cfg.Redis.Enabled {
		rateLimiter, err = redis.NewLimiter(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("failed to connect to redis, rate limiting disabled", zap.Error(err))
		} else {
			healthChecker.AddDependency("redis", rateLimiter)
			defer rateLimiter.Close()
			log.Info("redis rate limiter enabled", zap.String("address", cfg.Redis.Address))
		}
	}

	// 初始化服务层
	generator := addr.NewGenerator(cfg.Mailbox.AllowedDomains, cfg.Mailbox.TokenLength)
	registryService := service.NewRegistryService(store, generator, cfg.Mailbox.DefaultTTL)
	messageService := service.NewMessageService(store)
	ingestService := service.NewIngestService(registryService, messageService, log)
	sweeper := service.NewSweeper(store, cfg.Sweep.Interval, metrics, log)

	// WebSocket Hub：新邮件实时推送
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, log)
	ingestService.SetNotifier(wsHub)

	// HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:          cfg,
		RegistryService: registryService,
		MessageService:  messageService,
		IngestService:   ingestService,
		Sweeper:         sweeper,
		RateLimiter:     rateLimiter,
		Metrics:         metrics,
		Health:          healthChecker,
		WebSocketHub:    wsHub,
		Logger:          log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// SMTP 服务器
	connLimiter := smtp.NewConnLimiter(cfg.SMTP.MaxConnections, cfg.SMTP.MaxConnPerSec)
	smtpBackend := smtp.NewBackend(ingestService, cfg.Mailbox.AllowedDomains, connLimiter, metrics, log)
	smtpServer := gosmtp.NewServer(smtpBackend)
	smtpServer.Addr = cfg.SMTP.BindAddr
	smtpServer.Domain = cfg.SMTP.Domain
	smtpServer.ReadTimeout = 10 * time.Second
	smtpServer.WriteTimeout = 10 * time.Second
	smtpServer.MaxMessageBytes = cfg.SMTP.MaxMessageSize
	smtpServer.MaxRecipients = 50

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		log.Info("starting SMTP server",
			zap.String("address", cfg.SMTP.BindAddr),
			zap.String("domain", cfg.SMTP.Domain),
		)
		if err := smtpServer.ListenAndServe(); err != nil {
			log.Error("SMTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 过期邮箱清理 goroutine
	group.Go(func() error {
		sweeper.Run(groupCtx)
		return nil
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		if err := smtpServer.Close(); err != nil {
			log.Warn("SMTP server close warning", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
