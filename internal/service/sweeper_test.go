package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"driftmail/backend/internal/domain"
	"driftmail/backend/internal/monitoring"
	"driftmail/backend/internal/storage"
	"driftmail/backend/internal/storage/memory"
)

func TestSweepNow(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()

	require.NoError(t, store.CreateMailbox(&domain.Mailbox{
		Address:   "live@drift.mail",
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}))
	require.NoError(t, store.CreateMailbox(&domain.Mailbox{
		Address:   "stale@drift.mail",
		CreatedAt: now.Add(-20 * time.Minute),
		ExpiresAt: now.Add(-10 * time.Minute),
	}))

	sweeper := NewSweeper(store, time.Minute, nil, zap.NewNop())

	count, err := sweeper.SweepNow()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.GetMailboxByAddress("live@drift.mail")
	assert.NoError(t, err)
	_, err = store.GetMailboxByAddress("stale@drift.mail")
	assert.ErrorIs(t, err, storage.ErrMailboxNotFound)

	// 再清一次应当无事可做
	count, err = sweeper.SweepNow()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSweepNowCountsSweptMailboxes(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()

	require.NoError(t, store.CreateMailbox(&domain.Mailbox{
		Address:   "stale1@drift.mail",
		CreatedAt: now.Add(-20 * time.Minute),
		ExpiresAt: now.Add(-10 * time.Minute),
	}))
	require.NoError(t, store.CreateMailbox(&domain.Mailbox{
		Address:   "stale2@drift.mail",
		CreatedAt: now.Add(-20 * time.Minute),
		ExpiresAt: now.Add(-10 * time.Minute),
	}))

	metrics := monitoring.NewMetrics()
	sweeper := NewSweeper(store, time.Minute, metrics, zap.NewNop())

	count, err := sweeper.SweepNow()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	// 周期触发与手动触发都经过 SweepNow，计数器在此处统一累加
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.MailboxesSwept))

	_, err = sweeper.SweepNow()
	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.MailboxesSwept))
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	store := memory.NewStore()
	sweeper := NewSweeper(store, 10*time.Millisecond, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
