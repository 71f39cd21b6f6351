package httptransport

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"driftmail/backend/internal/monitoring"
	"driftmail/backend/internal/storage/redis"
)

// RequestLogger 记录每个请求的方法、路径、状态码与耗时。
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Recovery 捕获处理器 panic，记录后返回 500。
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
				)
				InternalError(c, MsgInternalError)
				c.Abort()
			}
		}()
		c.Next()
	}
}

// RateLimitByIP 基于 Redis 的单 IP 固定窗口限流。
//
// limiter 为 nil（未启用 Redis）时不做限制；
// Redis 故障时放行请求，限流失效不应放大为服务不可用。
func RateLimitByIP(
	limiter *redis.Limiter,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
	limit int64,
	window time.Duration,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), "ip:"+c.ClientIP(), limit, window)
		if err != nil {
			logger.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			if metrics != nil {
				metrics.RateLimitBlocks.WithLabelValues("ip").Inc()
			}
			TooManyRequests(c, MsgRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
