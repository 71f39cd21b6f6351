package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"driftmail/backend/internal/monitoring"
	"driftmail/backend/internal/storage"
)

// Sweeper 周期性删除过期邮箱及其邮件，回收存储空间。
//
// 清理只是存储回收手段，不承担正确性：邮箱是否可用始终由
// Lookup 的惰性过期判定得出，清理的调度抖动或停摆只会延迟
// 空间回收，不会让调用方观察到错误的有效性。
type Sweeper struct {
	repo     storage.MailboxRepository
	interval time.Duration
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewSweeper 创建过期清理任务。metrics 可为 nil。
func NewSweeper(repo storage.MailboxRepository, interval time.Duration, metrics *monitoring.Metrics, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		repo:     repo,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run 以固定间隔执行清理，直到 ctx 取消。
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("starting expired mailbox sweeper", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			count, err := s.SweepNow()
			if err != nil {
				s.logger.Error("failed to sweep expired mailboxes", zap.Error(err))
			} else if count > 0 {
				s.logger.Info("expired mailboxes swept", zap.Int("count", count))
			}
		}
	}
}

// SweepNow 立即执行一次清理，返回删除的邮箱数量。
// 也作为管理接口的手动触发入口。周期触发与手动触发共用同一计数指标。
func (s *Sweeper) SweepNow() (int, error) {
	count, err := s.repo.DeleteExpiredMailboxes(time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.MailboxesSwept.Add(float64(count))
	}
	return count, nil
}
