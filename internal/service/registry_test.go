package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftmail/backend/internal/addr"
	"driftmail/backend/internal/domain"
	"driftmail/backend/internal/storage"
	"driftmail/backend/internal/storage/memory"
)

func newTestRegistry(defaultTTL time.Duration) (*RegistryService, *memory.Store) {
	store := memory.NewStore()
	generator := addr.NewGenerator([]string{"drift.mail", "inbox.dev"}, 12)
	return NewRegistryService(store, generator, defaultTTL), store
}

func TestRegistryCreate(t *testing.T) {
	registry, store := newTestRegistry(10 * time.Minute)

	t.Run("随机地址", func(t *testing.T) {
		mb, err := registry.Create(CreateMailboxInput{})
		require.NoError(t, err)
		assert.Equal(t, "drift.mail", mb.Domain)
		assert.True(t, mb.ExpiresAt.After(mb.CreatedAt))
		assert.Equal(t, 10*time.Minute, mb.ExpiresAt.Sub(mb.CreatedAt))
	})

	t.Run("指定本地部分与域名", func(t *testing.T) {
		mb, err := registry.Create(CreateMailboxInput{LocalPart: "alice", Domain: "inbox.dev"})
		require.NoError(t, err)
		assert.Equal(t, "alice@inbox.dev", mb.Address)
		assert.Equal(t, "alice", mb.LocalPart)
		assert.Equal(t, "inbox.dev", mb.Domain)
	})

	t.Run("自定义 TTL", func(t *testing.T) {
		mb, err := registry.Create(CreateMailboxInput{TTL: time.Hour})
		require.NoError(t, err)
		assert.Equal(t, time.Hour, mb.ExpiresAt.Sub(mb.CreatedAt))
	})

	t.Run("同地址重复创建", func(t *testing.T) {
		_, err := registry.Create(CreateMailboxInput{LocalPart: "dup"})
		require.NoError(t, err)
		_, err = registry.Create(CreateMailboxInput{LocalPart: "dup"})
		assert.ErrorIs(t, err, storage.ErrMailboxExists)
	})

	t.Run("非法本地部分不留任何记录", func(t *testing.T) {
		_, err := registry.Create(CreateMailboxInput{LocalPart: "has space"})
		assert.ErrorIs(t, err, domain.ErrInvalidLocalPart)

		_, err = store.GetMailboxByAddress("has space@drift.mail")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})
}

func TestRegistryLookup(t *testing.T) {
	registry, store := newTestRegistry(10 * time.Minute)

	t.Run("有效邮箱", func(t *testing.T) {
		created, err := registry.Create(CreateMailboxInput{LocalPart: "alice"})
		require.NoError(t, err)

		mb, err := registry.Lookup("alice@drift.mail")
		require.NoError(t, err)
		assert.Equal(t, created.Address, mb.Address)
	})

	t.Run("地址大小写与尖括号归一化", func(t *testing.T) {
		mb, err := registry.Lookup("<Alice@Drift.Mail>")
		require.NoError(t, err)
		assert.Equal(t, "alice@drift.mail", mb.Address)
	})

	t.Run("不存在的地址", func(t *testing.T) {
		_, err := registry.Lookup("nobody@drift.mail")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})

	t.Run("空地址", func(t *testing.T) {
		_, err := registry.Lookup("   ")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})

	t.Run("过期邮箱在清理前即不可见", func(t *testing.T) {
		now := time.Now().UTC()
		require.NoError(t, store.CreateMailbox(&domain.Mailbox{
			Address:   "stale@drift.mail",
			LocalPart: "stale",
			Domain:    "drift.mail",
			CreatedAt: now.Add(-20 * time.Minute),
			ExpiresAt: now.Add(-10 * time.Minute),
		}))

		_, err := registry.Lookup("stale@drift.mail")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})
}

func TestRegistryDelete(t *testing.T) {
	registry, _ := newTestRegistry(10 * time.Minute)

	_, err := registry.Create(CreateMailboxInput{LocalPart: "alice"})
	require.NoError(t, err)

	require.NoError(t, registry.Delete("alice@drift.mail"))

	_, err = registry.Lookup("alice@drift.mail")
	assert.ErrorIs(t, err, storage.ErrMailboxNotFound)

	err = registry.Delete("alice@drift.mail")
	assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
}

func TestRegistryListByOwner(t *testing.T) {
	registry, _ := newTestRegistry(10 * time.Minute)

	_, err := registry.Create(CreateMailboxInput{LocalPart: "a", OwnerLabel: "session-1"})
	require.NoError(t, err)
	_, err = registry.Create(CreateMailboxInput{LocalPart: "b", OwnerLabel: "session-1"})
	require.NoError(t, err)
	_, err = registry.Create(CreateMailboxInput{LocalPart: "c", OwnerLabel: "session-2"})
	require.NoError(t, err)

	result, err := registry.ListByOwner("session-1")
	require.NoError(t, err)
	assert.Len(t, result, 2)
}
