package transport

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
)

const maxBackoff = 30 * time.Second

// tryReconnect 断线后按指数退避重新拨号，并用保存的昵称和令牌重新加入
func (c *Client) tryReconnect() {
	c.reconnectCount = 0
	backoff := c.retryInterval

	for c.reconnectCount < maxReconnectAttempts {
		c.reconnectCount++
		if c.OnReconnecting != nil {
			c.OnReconnecting(c.reconnectCount, maxReconnectAttempts)
		}
		log.Info().Int("attempt", c.reconnectCount).Dur("backoff", backoff).Msg("🔄 正在重连")

		select {
		case <-time.After(backoff):
		case <-c.done:
			c.reconnecting.Store(false)
			return
		}
		backoff = min(backoff*2, maxBackoff)

		conn, err := c.dial()
		if err != nil {
			log.Debug().Err(err).Msg("重连拨号失败")
			continue
		}

		// 先同步写入 join，再启动写协程，保证 join 是新连接上的第一条消息
		if err := c.writeRejoin(conn); err != nil {
			log.Warn().Err(err).Msg("发送重新加入请求失败")
			_ = conn.Close()
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		// reconnecting 保持为 true，直到收到 joined
		c.startPumps(conn)
		return
	}

	log.Error().Int("attempts", maxReconnectAttempts).Msg("❌ 重连失败，已达最大尝试次数")
	c.reconnecting.Store(false)
	c.Close()
	if c.OnClose != nil {
		c.OnClose()
	}
}

func (c *Client) writeRejoin(conn *websocket.Conn) error {
	c.identity.RLock()
	payload := protocol.JoinPayload{
		DisplayName: c.identity.nick,
		Color:       c.identity.color,
		Token:       c.identity.token,
	}
	c.identity.RUnlock()

	msg := codec.MustNewMessage(protocol.MsgJoin, payload)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if c.Binary {
		return conn.WriteMessage(websocket.BinaryMessage, codec.EncodeBinary(msg))
	}
	data, err := codec.Encode(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
