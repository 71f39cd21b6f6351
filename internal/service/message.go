package service

import (
	"time"

	"github.com/google/uuid"

	"driftmail/backend/internal/domain"
	"driftmail/backend/internal/storage"
)

// MessageService 封装邮件的追加与读取。
//
// 本服务不做过期复核：调用方（接收路由）负责在追加前通过注册表
// 确认邮箱有效，check-then-act 序列集中在路由一处。
type MessageService struct {
	repo storage.MessageRepository
}

// NewMessageService 创建邮件业务服务。
func NewMessageService(repo storage.MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

// AppendMessageInput 定义追加邮件的输入。
type AppendMessageInput struct {
	MailboxAddress string
	Sender         string
	Subject        string
	Body           string
}

// Append 将一封邮件追加到邮箱末尾。
//
// ReceivedAt 由本方法在接收时刻赋值，不采用投递方声称的时间。
// 验证码提取是尽力而为的附注，失败不影响邮件入库。
func (s *MessageService) Append(input AppendMessageInput) (*domain.Message, error) {
	message := &domain.Message{
		ID:               uuid.NewString(),
		MailboxAddress:   input.MailboxAddress,
		Sender:           input.Sender,
		Subject:          input.Subject,
		Body:             input.Body,
		ReceivedAt:       time.Now().UTC(),
		VerificationCode: domain.ExtractVerificationCode(input.Body),
	}

	if err := s.repo.AppendMessage(message); err != nil {
		return nil, err
	}
	return message, nil
}

// List 按接收顺序（最旧在前）返回邮箱内的全部邮件。
func (s *MessageService) List(mailboxAddress string) ([]domain.Message, error) {
	messages, err := s.repo.ListMessages(mailboxAddress)
	if err != nil {
		return nil, err
	}
	// 验证码不入库，读取时重新提取
	for i := range messages {
		messages[i].VerificationCode = domain.ExtractVerificationCode(messages[i].Body)
	}
	return messages, nil
}

// DeleteAll 清空邮箱内的全部邮件，返回删除数量。
func (s *MessageService) DeleteAll(mailboxAddress string) (int, error) {
	return s.repo.DeleteAllMessages(mailboxAddress)
}
