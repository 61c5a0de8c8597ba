// Package transport 终端客户端与服务器之间的 WebSocket 连接
package transport

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	heartbeatInterval    = 5 * time.Second
	maxReconnectAttempts = 5
	reconnectInterval    = 2 * time.Second

	bufferSize = 256
)

var (
	ErrClosed         = errors.New("transport: connection closed")
	ErrReceiveTimeout = errors.New("transport: receive timeout")
	ErrSendBufferFull = errors.New("transport: send buffer full")
)

// Client WebSocket 客户端
type Client struct {
	ServerURL string
	// Binary 为 true 时使用二进制帧发送，服务器随后也以二进制帧回复
	Binary bool

	conn    *websocket.Conn
	send    chan []byte
	receive chan *protocol.Message
	done    chan struct{}

	// 最近一次 joined 返回的身份，用于断线后自动重新加入
	identity struct {
		sync.RWMutex
		nick  string
		color string
		token string
	}

	latency atomic.Int64

	OnMessage       func(*protocol.Message)
	OnError         func(error)
	OnClose         func()
	OnReconnecting  func(attempt, maxTries int)
	OnReconnect     func()
	OnLatencyUpdate func(int64)

	mu             sync.RWMutex
	closed         bool
	reconnecting   atomic.Bool
	reconnectCount int
	retryInterval  time.Duration
}

// NewClient 创建客户端，serverURL 形如 ws://host:port/ws
func NewClient(serverURL string) *Client {
	return &Client{
		ServerURL:     serverURL,
		send:          make(chan []byte, bufferSize),
		receive:       make(chan *protocol.Message, bufferSize),
		done:          make(chan struct{}),
		retryInterval: reconnectInterval,
	}
}

// Connect 连接服务器并启动读写协程
func (c *Client) Connect() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.startPumps(conn)
	return nil
}

// startPumps 为一条底层连接启动读写协程，读协程退出时通知写协程
func (c *Client) startPumps(conn *websocket.Conn) {
	stop := make(chan struct{})
	go c.readPump(conn, stop)
	go c.writePump(conn, stop)
}

func (c *Client) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(c.ServerURL, nil)
	return conn, err
}

// SendMessage 编码并排队发送消息
func (c *Client) SendMessage(msg *protocol.Message) error {
	var data []byte
	if c.Binary {
		data = codec.EncodeBinary(msg)
	} else {
		encoded, err := codec.Encode(msg)
		if err != nil {
			return err
		}
		data = encoded
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Receive 阻塞等待下一条消息
func (c *Client) Receive() (*protocol.Message, error) {
	select {
	case msg := <-c.receive:
		return msg, nil
	case <-c.done:
		return nil, ErrClosed
	}
}

// ReceiveWithTimeout 带超时等待下一条消息
func (c *Client) ReceiveWithTimeout(timeout time.Duration) (*protocol.Message, error) {
	select {
	case msg := <-c.receive:
		return msg, nil
	case <-c.done:
		return nil, ErrClosed
	case <-time.After(timeout):
		return nil, ErrReceiveTimeout
	}
}

// Close 关闭连接，可重复调用
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// IsConnected 连接是否可用
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.conn != nil
}

// StartHeartbeat 定期发送 ping 以测量延迟
func (c *Client) StartHeartbeat() {
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		_ = c.Ping()
		for {
			select {
			case <-ticker.C:
				if c.reconnecting.Load() {
					continue
				}
				if err := c.Ping(); errors.Is(err, ErrClosed) {
					return
				}
			case <-c.done:
				return
			}
		}
	}()
}

// Latency 最近一次测得的往返延迟（毫秒）
func (c *Client) Latency() int64 {
	return c.latency.Load()
}

// IsReconnecting 是否正在重连
func (c *Client) IsReconnecting() bool {
	return c.reconnecting.Load()
}

// Nick 服务器确认的昵称
func (c *Client) Nick() string {
	c.identity.RLock()
	defer c.identity.RUnlock()
	return c.identity.nick
}

// Token 重连令牌
func (c *Client) Token() string {
	c.identity.RLock()
	defer c.identity.RUnlock()
	return c.identity.token
}

func (c *Client) rememberIdentity(p *protocol.JoinedPayload) {
	c.identity.Lock()
	defer c.identity.Unlock()
	c.identity.nick = p.Nick
	c.identity.color = p.Color
	c.identity.token = p.Token
}

func (c *Client) forgetIdentity() {
	c.identity.Lock()
	defer c.identity.Unlock()
	c.identity.nick, c.identity.color, c.identity.token = "", "", ""
}

func (c *Client) deliver(msg *protocol.Message) {
	select {
	case c.receive <- msg:
	default:
		log.Warn().Str("type", string(msg.Type)).Msg("接收缓冲区已满，丢弃消息")
	}
}
