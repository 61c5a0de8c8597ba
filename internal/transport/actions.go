package transport

import (
	"time"

	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
)

// --- 便捷方法 ---

// Join 以昵称和颜色加入游戏
func (c *Client) Join(nick, color string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgJoin, protocol.JoinPayload{
		DisplayName: nick,
		Color:       color,
	}))
}

// Leave 主动离开
func (c *Client) Leave() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgLeave, nil))
}

// Chat 发送聊天，作画阶段即为猜词
func (c *Client) Chat(text string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgChat, protocol.ChatPayload{Text: text}))
}

// Draw 画一条线段
func (c *Client) Draw(stroke protocol.Stroke) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgDraw, stroke))
}

// ClearCanvas 清空画布
func (c *Client) ClearCanvas() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgClearCanvas, nil))
}

// ReadyToDraw 画手开始作画；作画中再次发送表示跳过
func (c *Client) ReadyToDraw() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgReadyToDraw, nil))
}

// GetLeaderboard 获取排行榜
func (c *Client) GetLeaderboard(limit int) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgGetLeaderboard, protocol.GetLeaderboardPayload{Limit: limit}))
}

// Ping 发送心跳
func (c *Client) Ping() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgPing, protocol.PingPayload{
		Timestamp: time.Now().UnixMilli(),
	}))
}
