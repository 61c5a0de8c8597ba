package server

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/sketchers/internal/apperrors"
	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 单帧最大字节数，画笔线段与聊天都远小于此
	maxMessageSize = 4096

	// 发送缓冲区长度
	sendBufferSize = 256

	// 超限次数达到后断开
	maxRateWarnings = 5
)

// errClientClosed 连接已关闭，会话据此降级日志
var errClientClosed = apperrors.ErrConnectionClosed

// frame 待写出的一帧
type frame struct {
	kind int // websocket.TextMessage 或 websocket.BinaryMessage
	data []byte
}

// Client 一个 WebSocket 连接
type Client struct {
	ID string
	IP string

	server *Server
	conn   *websocket.Conn
	send   chan frame

	// 收到过二进制帧后，回复也使用二进制信封
	binary atomic.Bool

	mu     sync.RWMutex
	closed bool
}

// NewClient 创建新客户端
func NewClient(s *Server, conn *websocket.Conn) *Client {
	c := &Client{
		ID:     uuid.New().String(),
		server: s,
		conn:   conn,
		send:   make(chan frame, sendBufferSize),
	}
	c.binary.Store(s.config.Server.WireFormat == "binary")
	return c
}

// GetID 连接 ID
func (c *Client) GetID() string { return c.ID }

// GetIP 客户端 IP
func (c *Client) GetIP() string { return c.IP }

// ReadPump 从 WebSocket 读取消息
func (c *Client) ReadPump() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("conn", c.ID).Msg("💥 读取协程 panic")
		}
		c.handleDisconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("conn", c.ID).Msg("读取错误")
			}
			return
		}

		switch c.allowMessage() {
		case rateDisconnect:
			return
		case rateDrop:
			continue
		}

		msg, err := c.decode(kind, data)
		if err != nil {
			log.Debug().Err(err).Str("conn", c.ID).Msg("消息解析错误")
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			continue
		}

		c.server.handler.Handle(c, msg)
		codec.PutMessage(msg)
	}
}

// rateVerdict 消息限流结果
type rateVerdict int

const (
	rateAllow      rateVerdict = iota
	rateDrop                   // 超限，丢弃本条
	rateDisconnect             // 多次超限，断开连接
)

// allowMessage 消息限流
func (c *Client) allowMessage() rateVerdict {
	allowed, warning := c.server.messageLimiter.AllowMessage(c.ID)
	if allowed {
		if warning {
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "请求过于频繁，请放慢速度"))
		}
		return rateAllow
	}

	log.Warn().Str("conn", c.ID).Str("ip", c.IP).Msg("⚠️ 客户端消息过于频繁")
	c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "消息发送过于频繁"))
	if c.server.messageLimiter.GetWarningCount(c.ID) > maxRateWarnings {
		log.Warn().Str("conn", c.ID).Str("ip", c.IP).Msg("🚫 多次超速，断开连接")
		return rateDisconnect
	}
	return rateDrop
}

// decode 按帧类型选择编解码
func (c *Client) decode(kind int, data []byte) (*protocol.Message, error) {
	if kind == websocket.BinaryMessage {
		c.binary.Store(true)
		return codec.DecodeBinary(data)
	}
	c.binary.Store(false)
	return codec.Decode(data)
}

// WritePump 向 WebSocket 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(f.kind, f.data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送消息给客户端，失败时只记录日志
func (c *Client) SendMessage(msg *protocol.Message) {
	if err := c.trySend(msg); err != nil && !errors.Is(err, errClientClosed) {
		log.Warn().Err(err).Str("conn", c.ID).Str("type", string(msg.Type)).Msg("发送消息失败")
	}
}

// trySend 编码并放入发送缓冲区；缓冲区满说明客户端读得太慢，直接断开
func (c *Client) trySend(msg *protocol.Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errClientClosed
	}

	f := frame{kind: websocket.TextMessage}
	if c.binary.Load() {
		f.kind = websocket.BinaryMessage
		f.data = codec.EncodeBinary(msg)
	} else {
		data, err := codec.Encode(msg)
		if err != nil {
			return err
		}
		f.data = data
	}

	select {
	case c.send <- f:
		return nil
	default:
		log.Warn().Str("conn", c.ID).Msg("发送缓冲区已满，断开慢客户端")
		go c.Close()
		return errClientClosed
	}
}

// handleDisconnect 连接断开后的清理
func (c *Client) handleDisconnect() {
	if err := c.server.session.Disconnect(c.ID); err != nil && !errors.Is(err, apperrors.ErrUnknownConnection) {
		log.Warn().Err(err).Str("conn", c.ID).Msg("会话断开处理失败")
	}
	c.server.messageLimiter.RemoveClient(c.ID)
	c.server.chatLimiter.RemoveClient(c.ID)
	c.server.unregisterClient(c)
	c.Close()
}

// Close 关闭发送通道，WritePump 随后发送关闭帧
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
