package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"driftmail/backend/internal/config"
	"driftmail/backend/internal/health"
	"driftmail/backend/internal/monitoring"
	"driftmail/backend/internal/service"
	"driftmail/backend/internal/storage/redis"
	"driftmail/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config          *config.Config
	RegistryService *service.RegistryService
	MessageService  *service.MessageService
	IngestService   *service.IngestService
	Sweeper         *service.Sweeper
	RateLimiter     *redis.Limiter // 可选，nil 时不限流
	Metrics         *monitoring.Metrics
	Health          *health.Checker
	WebSocketHub    *websocket.Hub
	Logger          *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(Recovery(deps.Logger))
	router.Use(RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.GinMiddleware())
	}

	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 允许所有来源时必须关闭凭证支持
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := &Handler{
		registry: deps.RegistryService,
		messages: deps.MessageService,
		ingest:   deps.IngestService,
		sweeper:  deps.Sweeper,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}

	createLimit := RateLimitByIP(
		deps.RateLimiter,
		deps.Metrics,
		deps.Logger,
		int64(deps.Config.Mailbox.MaxPerIP),
		time.Hour,
	)

	if deps.Health != nil {
		router.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	v1 := router.Group("/v1")
	{
		mailboxRoutes := v1.Group("/mailboxes")
		{
			mailboxRoutes.POST("", createLimit, handler.createMailbox)
			mailboxRoutes.GET("", handler.listMailboxes)
			mailboxRoutes.GET("/:address", handler.getMailbox)
			mailboxRoutes.DELETE("/:address", handler.deleteMailbox)

			mailboxRoutes.GET("/:address/messages", handler.listMessages)
			mailboxRoutes.POST("/:address/messages", handler.injectMessage)
			mailboxRoutes.DELETE("/:address/messages", handler.clearMessages)
		}

		if deps.WebSocketHub != nil {
			v1.GET("/ws", deps.WebSocketHub.Handler())
		}

		adminRoutes := v1.Group("/admin")
		{
			adminRoutes.POST("/sweep", handler.sweepNow)
		}
	}

	return router
}
