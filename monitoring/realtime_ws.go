package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType 消息类型
type MessageType string

const (
	MetricsUpdate MessageType = "metrics"
)

// Message 推送给客户端的消息
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	ID        string          `json:"id"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// MetricsHub 通过WebSocket定时推送指标快照
type MetricsHub struct {
	collector *MetricsCollector
	interval  time.Duration

	clients    map[*client]bool
	publish    chan struct{}
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewMetricsHub 创建指标推送中心，需要调用Run后才接受连接
func NewMetricsHub(collector *MetricsCollector, interval time.Duration, logger *zap.Logger) *MetricsHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &MetricsHub{
		collector:  collector,
		interval:   interval,
		clients:    make(map[*client]bool),
		publish:    make(chan struct{}, 1),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run 事件循环，Stop之后返回
func (h *MetricsHub) Run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("metrics stream client connected", zap.String("client", c.id), zap.Int("total", total))
			// 新客户端立即收到一次快照
			if msg, err := h.snapshotMessage(); err == nil {
				h.deliver(c, msg)
			}

		case c := <-h.unregister:
			h.drop(c)
			h.logger.Debug("metrics stream client disconnected", zap.String("client", c.id))

		case <-h.publish:
			h.broadcast()

		case <-ticker.C:
			h.broadcast()

		case <-h.ctx.Done():
			// 关闭所有连接
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop 停止推送中心
func (h *MetricsHub) Stop() {
	h.cancel()
}

// Publish 请求立即推送一次快照，不阻塞
func (h *MetricsHub) Publish() {
	select {
	case h.publish <- struct{}{}:
	default:
	}
}

// Clients 当前连接数
func (h *MetricsHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket 处理WebSocket连接
func (h *MetricsHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 16),
		id:   uuid.NewString(),
	}

	select {
	case h.register <- c:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	go c.writePump(h.logger)
	go c.readPump(h)
}

func (h *MetricsHub) snapshotMessage() ([]byte, error) {
	data, err := json.Marshal(h.collector.Snapshot())
	if err != nil {
		h.logger.Error("marshal metrics snapshot", zap.Error(err))
		return nil, err
	}
	return json.Marshal(Message{
		Type:      MetricsUpdate,
		Timestamp: time.Now(),
		Data:      data,
		ID:        uuid.NewString(),
	})
}

func (h *MetricsHub) broadcast() {
	h.mu.RLock()
	empty := len(h.clients) == 0
	h.mu.RUnlock()
	if empty {
		return
	}

	msg, err := h.snapshotMessage()
	if err != nil {
		return
	}
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, msg)
	}
}

// deliver 慢客户端直接断开
func (h *MetricsHub) deliver(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("metrics stream client too slow, dropping", zap.String("client", c.id))
		h.drop(c)
	}
}

func (h *MetricsHub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// writePump WebSocket写入泵
func (c *client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("websocket write failed", zap.String("client", c.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只用于感知断开，客户端消息被丢弃
func (c *client) readPump(h *MetricsHub) {
	defer c.conn.Close()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", zap.String("client", c.id), zap.Error(err))
			}
			break
		}
	}

	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}
