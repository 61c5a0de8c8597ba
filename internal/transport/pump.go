package transport

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/sketchers/internal/logger"
	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
)

// readPump 从服务器读取消息
func (c *Client) readPump(conn *websocket.Conn, stop chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		close(stop)
		_ = conn.Close()
		c.handleReadExit()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && c.OnError != nil {
				c.OnError(err)
			}
			return
		}

		var msg *protocol.Message
		if kind == websocket.BinaryMessage {
			msg, err = codec.DecodeBinary(data)
		} else {
			msg, err = codec.Decode(data)
		}
		if err != nil {
			log.Warn().Err(err).Msg("消息解析错误")
			continue
		}

		c.processMessage(msg)
	}
}

// handleReadExit 读协程退出后决定重连还是关闭
func (c *Client) handleReadExit() {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	if c.Token() != "" && c.reconnecting.CompareAndSwap(false, true) {
		go c.tryReconnect()
		return
	}
	c.Close()
	if c.OnClose != nil {
		c.OnClose()
	}
}

// processMessage 处理连接层关心的消息后交给上层
func (c *Client) processMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgJoined:
		if p, err := codec.ParsePayload[protocol.JoinedPayload](msg); err == nil {
			c.rememberIdentity(p)
		}
		if c.reconnecting.CompareAndSwap(true, false) {
			log.Info().Str("nick", c.Nick()).Msg("✅ 重连成功")
			if c.OnReconnect != nil {
				c.OnReconnect()
			}
		}
	case protocol.MsgYouLeft:
		c.forgetIdentity()
	case protocol.MsgPong:
		if p, err := codec.ParsePayload[protocol.PongPayload](msg); err == nil && p.ClientTimestamp > 0 {
			latency := time.Now().UnixMilli() - p.ClientTimestamp
			c.latency.Store(latency)
			if c.OnLatencyUpdate != nil {
				c.OnLatencyUpdate(latency)
			}
		}
		return
	}

	if c.OnMessage != nil {
		c.OnMessage(msg)
	}
	c.deliver(msg)
}

// writePump 向服务器写入消息
func (c *Client) writePump(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	kind := websocket.TextMessage
	if c.Binary {
		kind = websocket.BinaryMessage
	}

	for {
		select {
		case data := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(kind, data); err != nil {
				log.Debug().Err(err).Msg("写入消息失败")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			return
		case <-c.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
