package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"driftmail/backend/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// MessageType 定义 WebSocket 消息类型
type MessageType string

const (
	MessageTypeNewMail     MessageType = "new_mail"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeSubscribed  MessageType = "subscribed"
	MessageTypeError       MessageType = "error"
)

// Message 定义 WebSocket 消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	Address   string          `json:"address,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Client 代表一个 WebSocket 客户端连接
type Client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
	mu        sync.RWMutex
	addresses map[string]bool // 订阅的邮箱地址
}

// Hub 管理全部客户端连接，并按邮箱地址分发新邮件通知。
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	byAddr   map[string]map[*Client]bool // address -> 订阅该地址的客户端
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub 创建 WebSocket Hub。
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		byAddr:  make(map[string]map[*Client]bool),
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker 创建带 Origin 验证的检查函数。
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		for _, origin := range allowedOrigins {
			if origin == "*" {
				return true
			}
		}

		requestOrigin := r.Header.Get("Origin")
		if requestOrigin == "" {
			return true
		}
		for _, origin := range allowedOrigins {
			if requestOrigin == origin {
				return true
			}
		}
		return false
	}
}

// Run 运行到 ctx 取消，随后关闭所有客户端的底层连接。
//
// 这里不关闭 send 通道：客户端的 readLoop 此刻可能正要回复
// 控制消息，通道统一由 readLoop 退出时的 unregister 关闭，
// 连接关闭会让每个 readLoop 随即出错退出并完成注销。
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		conns = append(conns, client.conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Close()
	}
}

// NotifyNewMessage 向订阅了该地址的客户端推送新邮件。
// 实现 service.Notifier 接口。
func (h *Hub) NotifyNewMessage(mailboxAddress string, message *domain.Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message for push", zap.Error(err))
		return
	}

	payload, err := json.Marshal(Message{
		Type:      MessageTypeNewMail,
		Address:   mailboxAddress,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.byAddr[mailboxAddress] {
		select {
		case client.send <- payload:
		default:
			// 发送缓冲已满的客户端直接跳过，不阻塞接收路径
		}
	}
}

// Handler 返回处理 WebSocket 升级的 gin 处理函数。
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			id:        uuid.NewString(),
			conn:      conn,
			send:      make(chan []byte, 64),
			hub:       h,
			addresses: make(map[string]bool),
		}

		h.register(client)

		go client.writeLoop()
		go client.readLoop()
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	client.mu.RLock()
	for address := range client.addresses {
		if subs, ok := h.byAddr[address]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.byAddr, address)
			}
		}
	}
	client.mu.RUnlock()
}

func (h *Hub) subscribe(client *Client, address string) {
	address = domain.NormalizeAddress(address)
	if address == "" {
		return
	}

	h.mu.Lock()
	if h.byAddr[address] == nil {
		h.byAddr[address] = make(map[*Client]bool)
	}
	h.byAddr[address][client] = true
	h.mu.Unlock()

	client.mu.Lock()
	client.addresses[address] = true
	client.mu.Unlock()
}

func (h *Hub) unsubscribe(client *Client, address string) {
	address = domain.NormalizeAddress(address)

	h.mu.Lock()
	if subs, ok := h.byAddr[address]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.byAddr, address)
		}
	}
	h.mu.Unlock()

	client.mu.Lock()
	delete(client.addresses, address)
	client.mu.Unlock()
}

// readLoop 读取客户端的订阅控制消息。
func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("invalid message format")
			continue
		}

		switch msg.Type {
		case MessageTypeSubscribe:
			c.hub.subscribe(c, msg.Address)
			c.sendControl(MessageTypeSubscribed, msg.Address)
		case MessageTypeUnsubscribe:
			c.hub.unsubscribe(c, msg.Address)
		default:
			c.sendError("unsupported message type")
		}
	}
}

// writeLoop 将待发送数据写入连接并维持心跳。
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendControl(msgType MessageType, address string) {
	payload, err := json.Marshal(Message{
		Type:      msgType,
		Address:   address,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) sendError(reason string) {
	payload, err := json.Marshal(Message{
		Type:      MessageTypeError,
		Error:     reason,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
