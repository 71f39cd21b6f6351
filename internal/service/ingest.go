package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"driftmail/backend/internal/domain"
	"driftmail/backend/internal/storage"
)

var (
	// ErrUnknownRecipient 表示收件地址不存在或已过期，投递应被明确拒绝。
	ErrUnknownRecipient = errors.New("unknown recipient")
	// ErrMalformedEvent 表示入站事件本身不完整，未查询注册表即被拒绝。
	ErrMalformedEvent = errors.New("malformed mail event")
	// ErrTemporaryFailure 表示暂时性存储故障或良性的删除竞争，
	// 投递方可按标准邮件重试语义稍后重试。
	ErrTemporaryFailure = errors.New("temporary failure")
)

// InboundMail 是邮件协议层解析出的一次入站投递事件。
type InboundMail struct {
	Recipient string
	Sender    string
	Subject   string
	Body      string
}

// Notifier 在邮件被接受后收到通知，用于向订阅端推送新邮件。
type Notifier interface {
	NotifyNewMessage(mailboxAddress string, message *domain.Message)
}

// IngestService 是接收路由：对每个入站事件给出接受/拒绝/暂缓的
// 同步裁决。邮件传输语义要求在事务内给出确定的逐收件人决定，
// 因此单个事件的处理严格同步，独立事件之间并发。
type IngestService struct {
	registry *RegistryService
	messages *MessageService
	notifier Notifier
	logger   *zap.Logger
}

// NewIngestService 创建接收路由服务。
func NewIngestService(registry *RegistryService, messages *MessageService, logger *zap.Logger) *IngestService {
	return &IngestService{
		registry: registry,
		messages: messages,
		logger:   logger,
	}
}

// SetNotifier 设置新邮件通知接收方（可选）。
func (s *IngestService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// Resolve 判定收件地址此刻是否可投递。
//
// 供协议层在 RCPT 阶段使用，地址未知或已过期返回 ErrUnknownRecipient。
func (s *IngestService) Resolve(recipient string) error {
	recipient = domain.NormalizeAddress(recipient)
	if _, _, ok := domain.SplitAddress(recipient); !ok {
		return ErrMalformedEvent
	}

	if _, err := s.registry.Lookup(recipient); err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			return ErrUnknownRecipient
		}
		return fmt.Errorf("%w: %v", ErrTemporaryFailure, err)
	}
	return nil
}

// Deliver 处理一次入站投递事件：解析 → 查询注册表 → 追加入库。
//
// 查询与追加之间存在与清理任务的竞争窗口：邮箱可能在查询通过后
// 被删除。此时追加以 ErrTemporaryFailure 告知投递方重试，存储层
// 保证不会因此出现撕裂状态。ctx 取消时干净中止，不留半写邮件。
func (s *IngestService) Deliver(ctx context.Context, event InboundMail) (*domain.Message, error) {
	recipient := domain.NormalizeAddress(event.Recipient)
	if _, _, ok := domain.SplitAddress(recipient); !ok {
		return nil, ErrMalformedEvent
	}

	mailbox, err := s.registry.Lookup(recipient)
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			return nil, ErrUnknownRecipient
		}
		return nil, fmt.Errorf("%w: %v", ErrTemporaryFailure, err)
	}

	// 协议层会话可能已超时取消，追加前最后确认一次
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemporaryFailure, err)
	}

	message, err := s.messages.Append(AppendMessageInput{
		MailboxAddress: mailbox.Address,
		Sender:         event.Sender,
		Subject:        event.Subject,
		Body:           event.Body,
	})
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			// 查询之后邮箱被清理任务或显式删除抢先移除
			s.logger.Debug("mailbox deleted between lookup and append",
				zap.String("address", mailbox.Address),
			)
			return nil, fmt.Errorf("%w: mailbox deleted during delivery", ErrTemporaryFailure)
		}
		return nil, fmt.Errorf("%w: %v", ErrTemporaryFailure, err)
	}

	s.logger.Info("message accepted",
		zap.String("address", mailbox.Address),
		zap.String("sender", event.Sender),
	)

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(mailbox.Address, message)
	}

	return message, nil
}
