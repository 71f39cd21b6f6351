package httptransport

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"driftmail/backend/internal/domain"
	"driftmail/backend/internal/monitoring"
	"driftmail/backend/internal/service"
)

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	registry *service.RegistryService
	messages *service.MessageService
	ingest   *service.IngestService
	sweeper  *service.Sweeper
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// createMailboxRequest 创建邮箱的请求体。
type createMailboxRequest struct {
	LocalPart  string `json:"localPart"`  // 可选：指定前缀，为空时随机生成
	Domain     string `json:"domain"`     // 可选：指定域名
	OwnerLabel string `json:"ownerLabel"` // 可选：归属标签
	TTL        string `json:"ttl"`        // 可选：生存时长，如 "10m"、"1h"
}

// createMailbox 创建一次性邮箱。
// POST /v1/mailboxes
func (h *Handler) createMailbox(c *gin.Context) {
	var req createMailboxRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
	}

	var ttl time.Duration
	if req.TTL != "" {
		parsed, err := time.ParseDuration(req.TTL)
		if err != nil || parsed <= 0 {
			BadRequest(c, MsgInvalidTTL)
			return
		}
		ttl = parsed
	}

	mailbox, err := h.registry.Create(service.CreateMailboxInput{
		LocalPart:  req.LocalPart,
		Domain:     req.Domain,
		OwnerLabel: req.OwnerLabel,
		TTL:        ttl,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.MailboxesCreated.Inc()
	}
	Created(c, mailbox)
}

// listMailboxes 枚举归属标签下的有效邮箱。
// GET /v1/mailboxes?owner=<label>
//
// 注册表返回的记录可能包含已过期未清理的条目，
// 对外暴露前按查询相同的惰性规则逐条复核。
func (h *Handler) listMailboxes(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "" {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	mailboxes, err := h.registry.ListByOwner(owner)
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	live := make([]domain.Mailbox, 0, len(mailboxes))
	for _, mb := range mailboxes {
		if domain.IsLive(&mb, now) {
			live = append(live, mb)
		}
	}
	Success(c, live)
}

// getMailbox 查询单个邮箱，过期视同不存在。
// GET /v1/mailboxes/:address
func (h *Handler) getMailbox(c *gin.Context) {
	mailbox, err := h.registry.Lookup(c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, mailbox)
}

// deleteMailbox 删除邮箱及其全部邮件。
// DELETE /v1/mailboxes/:address
func (h *Handler) deleteMailbox(c *gin.Context) {
	if err := h.registry.Delete(c.Param("address")); err != nil {
		respondError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.MailboxesDeleted.Inc()
	}
	NoContent(c)
}

// listMessages 按接收顺序返回邮箱内的邮件。
// GET /v1/mailboxes/:address/messages
func (h *Handler) listMessages(c *gin.Context) {
	mailbox, err := h.registry.Lookup(c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}

	messages, err := h.messages.List(mailbox.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, messages)
}

// clearMessages 清空邮箱内的全部邮件。
// DELETE /v1/mailboxes/:address/messages
func (h *Handler) clearMessages(c *gin.Context) {
	mailbox, err := h.registry.Lookup(c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}

	count, err := h.messages.DeleteAll(mailbox.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"removed": count})
}

// injectMessageRequest 模拟投递的请求体。
type injectMessageRequest struct {
	Sender  string `json:"sender" binding:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// injectMessage 模拟一次入站投递（联调与测试用）。
// POST /v1/mailboxes/:address/messages
//
// 事件走完整的接收路由，与 SMTP 入口同一套裁决逻辑。
func (h *Handler) injectMessage(c *gin.Context) {
	var req injectMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	message, err := h.ingest.Deliver(c.Request.Context(), service.InboundMail{
		Recipient: c.Param("address"),
		Sender:    req.Sender,
		Subject:   req.Subject,
		Body:      req.Body,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.MessagesAccepted.Inc()
	}
	Created(c, message)
}

// sweepNow 手动触发一次过期清理。
// POST /v1/admin/sweep
func (h *Handler) sweepNow(c *gin.Context) {
	count, err := h.sweeper.SweepNow()
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("manual sweep completed", zap.Int("removed", count))
	Success(c, gin.H{"removed": count})
}
