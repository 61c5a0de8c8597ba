package types

import (
	"context"

	"github.com/palemoky/sketchers/internal/protocol"
)

// ServerInterface 定义服务器接口（用于打破循环依赖）
type ServerInterface interface {
	IsMaintenanceMode() bool
	GetOnlineCount() int
	GetClientByID(id string) ClientInterface
}

// ClientInterface 定义客户端接口
type ClientInterface interface {
	GetID() string
	GetIP() string
	SendMessage(msg *protocol.Message)
	Close()
}

// GameSession 会话操作接口，由 session.Session 实现
type GameSession interface {
	Join(connID string, req protocol.JoinPayload) error
	Leave(connID string) error
	Disconnect(connID string) error
	Guess(connID, text string) error
	Draw(connID string, stroke protocol.Stroke) error
	ClearCanvas(connID string) error
	ReadyToDraw(connID string) error
}

// ChatLimiter 聊天速率限制器接口
type ChatLimiter interface {
	AllowChat(clientID string) (allowed bool, reason string)
	RemoveClient(clientID string)
}

// Leaderboard 排行榜查询接口
type Leaderboard interface {
	Top(ctx context.Context, tag string, limit int) ([]protocol.LeaderboardEntry, error)
}
