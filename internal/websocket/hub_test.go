package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"driftmail/backend/internal/domain"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/ws", hub.Handler())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func clientCount(hub *Hub) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

func TestHubSubscribeAndNotify(t *testing.T) {
	hub := NewHub([]string{"*"}, zap.NewNop())
	conn := dialTestHub(t, hub)

	sub, err := json.Marshal(Message{Type: MessageTypeSubscribe, Address: "alice@drift.mail"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, sub))

	// 订阅确认
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var ack Message
	require.NoError(t, json.Unmarshal(raw, &ack))
	assert.Equal(t, MessageTypeSubscribed, ack.Type)
	assert.Equal(t, "alice@drift.mail", ack.Address)

	hub.NotifyNewMessage("alice@drift.mail", &domain.Message{
		ID:             "msg-1",
		MailboxAddress: "alice@drift.mail",
		Body:           "hello",
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err = conn.ReadMessage()
	require.NoError(t, err)
	var push Message
	require.NoError(t, json.Unmarshal(raw, &push))
	assert.Equal(t, MessageTypeNewMail, push.Type)
	assert.Equal(t, "alice@drift.mail", push.Address)
}

func TestHubShutdownWithActiveClient(t *testing.T) {
	hub := NewHub([]string{"*"}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	conn := dialTestHub(t, hub)

	sub, err := json.Marshal(Message{Type: MessageTypeSubscribe, Address: "alice@drift.mail"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, sub))

	require.Eventually(t, func() bool {
		return clientCount(hub) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after context cancellation")
	}

	// 连接被关闭后由各自的 readLoop 完成注销
	require.Eventually(t, func() bool {
		return clientCount(hub) == 0
	}, time.Second, 10*time.Millisecond)

	// 关停后的推送落在无人订阅的地址上，不应崩溃
	assert.NotPanics(t, func() {
		hub.NotifyNewMessage("alice@drift.mail", &domain.Message{ID: "msg-2"})
	})
}
