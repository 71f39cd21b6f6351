package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftmail/backend/internal/domain"
	"driftmail/backend/internal/storage"
	"driftmail/backend/internal/storage/memory"
)

func newTestMessageService(t *testing.T) (*MessageService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	now := time.Now().UTC()
	require.NoError(t, store.CreateMailbox(&domain.Mailbox{
		Address:   "alice@drift.mail",
		LocalPart: "alice",
		Domain:    "drift.mail",
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}))
	return NewMessageService(store), store
}

func TestMessageAppend(t *testing.T) {
	svc, _ := newTestMessageService(t)

	t.Run("追加成功", func(t *testing.T) {
		msg, err := svc.Append(AppendMessageInput{
			MailboxAddress: "alice@drift.mail",
			Sender:         "noreply@example.com",
			Subject:        "Welcome",
			Body:           "hello",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, "alice@drift.mail", msg.MailboxAddress)
		assert.False(t, msg.ReceivedAt.IsZero())
	})

	t.Run("正文含验证码时附带提取结果", func(t *testing.T) {
		msg, err := svc.Append(AppendMessageInput{
			MailboxAddress: "alice@drift.mail",
			Sender:         "noreply@example.com",
			Subject:        "Verify",
			Body:           "Your code is 482913.",
		})
		require.NoError(t, err)
		assert.Equal(t, "482913", msg.VerificationCode)
	})

	t.Run("邮箱不存在", func(t *testing.T) {
		_, err := svc.Append(AppendMessageInput{MailboxAddress: "missing@drift.mail", Body: "x"})
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})
}

func TestMessageList(t *testing.T) {
	svc, _ := newTestMessageService(t)

	bodies := []string{"first mail", "code 482913 inside", "third mail"}
	for _, body := range bodies {
		_, err := svc.Append(AppendMessageInput{
			MailboxAddress: "alice@drift.mail",
			Sender:         "noreply@example.com",
			Body:           body,
		})
		require.NoError(t, err)
	}

	messages, err := svc.List("alice@drift.mail")
	require.NoError(t, err)
	require.Len(t, messages, 3)

	// 最旧在前，验证码在读取时重新提取
	assert.Equal(t, "first mail", messages[0].Body)
	assert.Equal(t, "482913", messages[1].VerificationCode)
	assert.Empty(t, messages[2].VerificationCode)
}

func TestMessageDeleteAll(t *testing.T) {
	svc, _ := newTestMessageService(t)

	for i := 0; i < 2; i++ {
		_, err := svc.Append(AppendMessageInput{MailboxAddress: "alice@drift.mail", Body: "x"})
		require.NoError(t, err)
	}

	count, err := svc.DeleteAll("alice@drift.mail")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	messages, err := svc.List("alice@drift.mail")
	require.NoError(t, err)
	assert.Empty(t, messages)
}
