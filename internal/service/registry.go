package service

import (
	"time"

	"driftmail/backend/internal/addr"
	"driftmail/backend/internal/domain"
	"driftmail/backend/internal/storage"
)

// RegistryService 是邮箱目录的权威入口，负责创建、查询、删除与过期判定。
type RegistryService struct {
	repo       storage.MailboxRepository
	generator  *addr.Generator
	defaultTTL time.Duration
}

// NewRegistryService 创建邮箱注册表服务。
func NewRegistryService(repo storage.MailboxRepository, generator *addr.Generator, defaultTTL time.Duration) *RegistryService {
	return &RegistryService{
		repo:       repo,
		generator:  generator,
		defaultTTL: defaultTTL,
	}
}

// CreateMailboxInput 定义创建邮箱所需的输入。
type CreateMailboxInput struct {
	LocalPart  string        // 可选：指定本地部分，为空时随机生成
	Domain     string        // 可选：指定域名，为空时使用默认域名
	OwnerLabel string        // 调用方的归属标签，用于按逻辑收件箱枚举
	TTL        time.Duration // 可选：生存时间，非正值时使用默认 TTL
}

// Create 创建新的一次性邮箱。
//
// 地址冲突检测由存储层原子完成：同地址已有有效邮箱时返回
// storage.ErrMailboxExists，过期残留则被直接替换。
func (s *RegistryService) Create(input CreateMailboxInput) (*domain.Mailbox, error) {
	address, err := s.generator.Generate(input.LocalPart, input.Domain)
	if err != nil {
		return nil, err
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	localPart, domainName, _ := domain.SplitAddress(address)
	now := time.Now().UTC()

	mailbox := &domain.Mailbox{
		Address:    address,
		LocalPart:  localPart,
		Domain:     domainName,
		OwnerLabel: input.OwnerLabel,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	if err := s.repo.CreateMailbox(mailbox); err != nil {
		return nil, err
	}
	return mailbox, nil
}

// Lookup 根据地址查询有效邮箱。
//
// 过期在每次查询时惰性判定：记录不存在或 ExpiresAt 已过都返回
// storage.ErrMailboxNotFound，调用方不可能观察到逻辑上已过期的
// 邮箱，无论清理任务是否运行过。
func (s *RegistryService) Lookup(address string) (*domain.Mailbox, error) {
	address = domain.NormalizeAddress(address)
	if address == "" {
		return nil, storage.ErrMailboxNotFound
	}

	mailbox, err := s.repo.GetMailboxByAddress(address)
	if err != nil {
		return nil, err
	}
	if !domain.IsLive(mailbox, time.Now()) {
		return nil, storage.ErrMailboxNotFound
	}
	return mailbox, nil
}

// Delete 删除指定邮箱及其全部邮件。
func (s *RegistryService) Delete(address string) error {
	return s.repo.DeleteMailbox(domain.NormalizeAddress(address))
}

// ListByOwner 返回归属标签下的全部邮箱记录，含已过期未清理的条目。
//
// 对外暴露前调用方需按 Lookup 相同的惰性规则逐条复核过期状态。
func (s *RegistryService) ListByOwner(ownerLabel string) ([]domain.Mailbox, error) {
	return s.repo.ListMailboxesByOwner(ownerLabel)
}
