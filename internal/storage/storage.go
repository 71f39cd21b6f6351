package storage

import (
	"errors"
	"time"

	"driftmail/backend/internal/domain"
)

var (
	// ErrMailboxNotFound 表示邮箱不存在（或已过期被视同不存在）。
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrMailboxExists 表示同地址的有效邮箱已存在。
	ErrMailboxExists = errors.New("mailbox address already exists")
)

// MailboxRepository 定义邮箱目录的数据存取操作。
//
// CreateMailbox 必须原子地检测重复：同地址存在有效记录时返回
// ErrMailboxExists；已过期但未清理的记录视同不存在，直接被替换。
// GetMailboxByAddress 返回原始记录，不做过期判定，过期语义由上层
// 通过 domain.IsLive 统一推导。
type MailboxRepository interface {
	CreateMailbox(mailbox *domain.Mailbox) error
	GetMailboxByAddress(address string) (*domain.Mailbox, error)
	ListMailboxesByOwner(ownerLabel string) ([]domain.Mailbox, error)
	DeleteMailbox(address string) error
	DeleteExpiredMailboxes(now time.Time) (int, error)
}

// MessageRepository 定义邮件数据存取操作。
//
// AppendMessage 在邮箱已不存在时返回 ErrMailboxNotFound；
// ListMessages 按接收顺序（最旧在前）返回。
// 邮件的级联删除由 DeleteMailbox/DeleteExpiredMailboxes 原子完成，
// DeleteAllMessages 仅作为清空单个邮箱的独立入口。
type MessageRepository interface {
	AppendMessage(message *domain.Message) error
	ListMessages(mailboxAddress string) ([]domain.Message, error)
	DeleteAllMessages(mailboxAddress string) (int, error)
}

// Store 定义完整的存储接口。
type Store interface {
	MailboxRepository
	MessageRepository

	Close() error
	Health() error
}
