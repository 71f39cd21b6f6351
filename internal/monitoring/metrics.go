package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 邮箱指标
	MailboxesCreated prometheus.Counter
	MailboxesDeleted prometheus.Counter
	MailboxesSwept   prometheus.Counter

	// 接收指标
	MessagesAccepted prometheus.Counter
	IngestRejections *prometheus.CounterVec

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标（promauto 自动完成注册）。
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "driftmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "driftmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		MailboxesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "driftmail_mailboxes_created_total",
				Help: "Total number of mailboxes created",
			},
		),

		MailboxesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "driftmail_mailboxes_deleted_total",
				Help: "Total number of mailboxes explicitly deleted",
			},
		),

		MailboxesSwept: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "driftmail_mailboxes_swept_total",
				Help: "Total number of expired mailboxes removed by the sweeper",
			},
		),

		MessagesAccepted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "driftmail_messages_accepted_total",
				Help: "Total number of inbound messages accepted and stored",
			},
		),

		IngestRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "driftmail_ingest_rejections_total",
				Help: "Total number of inbound deliveries rejected, by reason",
			},
			[]string{"reason"},
		),

		RateLimitBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "driftmail_rate_limit_blocks_total",
				Help: "Total number of requests blocked by rate limiting",
			},
			[]string{"scope"},
		),
	}
}

// HTTPHandler 返回 Prometheus 指标端点处理器。
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware 记录每个 HTTP 请求的计数与时延。
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, endpoint).
			Observe(time.Since(start).Seconds())
	}
}
