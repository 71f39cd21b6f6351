package memory

import (
	"sort"
	"sync"
	"time"

	"driftmail/backend/internal/domain"
	"driftmail/backend/internal/storage"
)

// Store 使用内存保存邮箱与邮件数据，作为开发环境的默认后端。
//
// 所有操作在同一把锁下完成，因此"删除邮箱连带删除其全部邮件"
// 对并发的 AppendMessage/ListMessages 而言是原子的，不会出现
// 地址已删但邮件残留（或相反）的撕裂状态。
type Store struct {
	mu        sync.RWMutex
	mailboxes map[string]*domain.Mailbox   // address -> mailbox
	messages  map[string][]*domain.Message // address -> 按接收顺序排列的邮件
	seq       uint64
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		mailboxes: make(map[string]*domain.Mailbox),
		messages:  make(map[string][]*domain.Message),
	}
}

// CreateMailbox 注册新邮箱。
//
// 同地址存在有效记录时返回 storage.ErrMailboxExists；
// 过期残留记录视同不存在，连同其邮件一起被替换。
func (s *Store) CreateMailbox(mailbox *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.mailboxes[mailbox.Address]; ok {
		if domain.IsLive(existing, time.Now()) {
			return storage.ErrMailboxExists
		}
		s.deleteMailboxLocked(mailbox.Address)
	}

	mb := *mailbox
	s.mailboxes[mailbox.Address] = &mb
	return nil
}

// GetMailboxByAddress 根据完整地址获取邮箱记录。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mb, ok := s.mailboxes[address]
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	copied := *mb
	return &copied, nil
}

// ListMailboxesByOwner 返回指定归属标签下的全部邮箱快照，含已过期记录。
func (s *Store) ListMailboxesByOwner(ownerLabel string) ([]domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Mailbox, 0)
	for _, mb := range s.mailboxes {
		if mb.OwnerLabel == ownerLabel {
			result = append(result, *mb)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteMailbox 删除指定邮箱及其全部邮件。
func (s *Store) DeleteMailbox(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[address]; !ok {
		return storage.ErrMailboxNotFound
	}
	s.deleteMailboxLocked(address)
	return nil
}

// DeleteExpiredMailboxes 删除所有过期邮箱，返回删除数量。
func (s *Store) DeleteExpiredMailboxes(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for address, mb := range s.mailboxes {
		if !domain.IsLive(mb, now) {
			s.deleteMailboxLocked(address)
			count++
		}
	}
	return count, nil
}

func (s *Store) deleteMailboxLocked(address string) {
	delete(s.mailboxes, address)
	delete(s.messages, address)
}

// AppendMessage 追加一封邮件到邮箱末尾。
//
// 邮箱已被删除（含清理任务抢先删除的情形）时返回
// storage.ErrMailboxNotFound，由调用方决定如何向投递方报告。
func (s *Store) AppendMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[message.MailboxAddress]; !ok {
		return storage.ErrMailboxNotFound
	}

	s.seq++
	message.Seq = s.seq
	copied := *message
	s.messages[message.MailboxAddress] = append(s.messages[message.MailboxAddress], &copied)
	return nil
}

// ListMessages 按接收顺序返回邮箱内的全部邮件。
//
// 邮箱存在但尚无邮件时返回空切片而非错误。
func (s *Store) ListMessages(mailboxAddress string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.mailboxes[mailboxAddress]; !ok {
		return nil, storage.ErrMailboxNotFound
	}

	msgs := s.messages[mailboxAddress]
	result := make([]domain.Message, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, *msg)
	}
	return result, nil
}

// DeleteAllMessages 清空邮箱内的全部邮件，返回删除数量。
func (s *Store) DeleteAllMessages(mailboxAddress string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[mailboxAddress]; !ok {
		return 0, storage.ErrMailboxNotFound
	}
	count := len(s.messages[mailboxAddress])
	delete(s.messages, mailboxAddress)
	return count, nil
}

// Close 实现 storage.Store 接口，内存存储无需释放资源。
func (s *Store) Close() error {
	return nil
}

// Health 实现 storage.Store 接口。
func (s *Store) Health() error {
	return nil
}
