package smtp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"driftmail/backend/internal/monitoring"
	"driftmail/backend/internal/service"
)

// deliverTimeout 单次投递（解析加入库）允许的最长时间。
const deliverTimeout = 30 * time.Second

// Backend 实现 go-smtp 的 Backend 接口。
//
// 这是一个只接收邮件的 SMTP 服务器：
// - 只接收发送到本系统已注册邮箱的邮件
// - RCPT 阶段即严格校验收件人，未知或已过期地址返回 550
// - 不支持对外发送与中继
//
// 接受/拒绝的裁决全部委托给接收路由（service.IngestService），
// 本层只做协议映射：路由的类型化结果翻译为对应的 SMTP 应答码。
type Backend struct {
	ingest  *service.IngestService
	domains map[string]struct{}
	limiter *ConnLimiter
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewBackend 创建 SMTP Backend。
func NewBackend(
	ingest *service.IngestService,
	allowedDomains []string,
	limiter *ConnLimiter,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Backend {
	domains := make(map[string]struct{}, len(allowedDomains))
	for _, d := range allowedDomains {
		domains[strings.ToLower(d)] = struct{}{}
	}
	return &Backend{
		ingest:  ingest,
		domains: domains,
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
}

// NewSession 创建新的 SMTP 会话，超出连接限额时直接拒绝。
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	if b.limiter != nil && !b.limiter.Acquire() {
		return nil, &gosmtp.SMTPError{
			Code:         421,
			EnhancedCode: gosmtp.EnhancedCode{4, 7, 0},
			Message:      "too many connections, try again later",
		}
	}
	return &session{backend: b}, nil
}

type session struct {
	backend     *Backend
	fromAddress string
	recipients  []string
}

// Mail 处理 MAIL 命令。
func (s *session) Mail(from string, _ *gosmtp.MailOptions) error {
	s.fromAddress = from
	return nil
}

// Rcpt 处理 RCPT 命令。
//
// 邮件传输语义要求在事务内给出确定的逐收件人接受/拒绝决定，
// 因此这里同步查询注册表：域名不归本服务管理或邮箱不存在/已过期
// 都返回 550 而不是静默丢弃。
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	addr := normalizeAddress(to)

	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	}

	if _, ok := s.backend.domains[parts[1]]; !ok {
		s.countReject("relay_denied")
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
			Message:      "relay access denied - domain not managed by this server",
		}
	}

	if err := s.backend.ingest.Resolve(addr); err != nil {
		return s.mapIngestError(err)
	}

	s.recipients = append(s.recipients, addr)
	return nil
}

// Data 处理邮件内容：解析出纯文本后逐收件人经接收路由投递。
func (s *session) Data(r io.Reader) error {
	rawBytes, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	parsed, err := ParseMail(rawBytes)
	if err != nil {
		s.countReject("malformed")
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 6, 0},
			Message:      fmt.Sprintf("malformed message: %v", err),
		}
	}

	sender := s.fromAddress
	if parsed.From != "" {
		sender = parsed.From
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	for _, rcpt := range s.recipients {
		_, err := s.backend.ingest.Deliver(ctx, service.InboundMail{
			Recipient: rcpt,
			Sender:    sender,
			Subject:   parsed.Subject,
			Body:      parsed.Text,
		})
		if err != nil {
			return s.mapIngestError(err)
		}
		if s.backend.metrics != nil {
			s.backend.metrics.MessagesAccepted.Inc()
		}
	}

	return nil
}

// mapIngestError 将接收路由的类型化结果翻译为 SMTP 应答。
func (s *session) mapIngestError(err error) error {
	switch {
	case errors.Is(err, service.ErrUnknownRecipient):
		s.countReject("unknown_recipient")
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
			Message:      "recipient mailbox not found",
		}
	case errors.Is(err, service.ErrMalformedEvent):
		s.countReject("malformed")
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	case errors.Is(err, service.ErrTemporaryFailure):
		s.countReject("temporary_failure")
		return &gosmtp.SMTPError{
			Code:         451,
			EnhancedCode: gosmtp.EnhancedCode{4, 3, 0},
			Message:      "temporary failure, try again later",
		}
	default:
		s.countReject("internal")
		s.backend.logger.Error("unexpected ingest error", zap.Error(err))
		return &gosmtp.SMTPError{
			Code:         451,
			EnhancedCode: gosmtp.EnhancedCode{4, 3, 0},
			Message:      "temporary failure, try again later",
		}
	}
}

func (s *session) countReject(reason string) {
	if s.backend.metrics != nil {
		s.backend.metrics.IngestRejections.WithLabelValues(reason).Inc()
	}
}

// AuthPlain 处理 PLAIN 认证（接收服务器允许匿名）。
func (s *session) AuthPlain(username, password string) error {
	return nil
}

// Reset 重置会话状态。
func (s *session) Reset() {
	s.fromAddress = ""
	s.recipients = nil
}

// Logout 会话结束，释放连接额度。
func (s *session) Logout() error {
	if s.backend.limiter != nil {
		s.backend.limiter.Release()
	}
	return nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}
