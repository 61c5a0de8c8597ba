package apperrors

import (
	"github.com/palemoky/sketchers/internal/protocol"
)

// GameError 会话错误（会话与处理器共享）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrInvalidNick       = &GameError{Code: protocol.ErrCodeInvalidNick, Message: "昵称无效"}
	ErrNickTaken         = &GameError{Code: protocol.ErrCodeNickTaken, Message: "昵称已被占用"}
	ErrAlreadyJoined     = &GameError{Code: protocol.ErrCodeAlreadyJoined, Message: "该连接已加入游戏"}
	ErrUnknownConnection = &GameError{Code: protocol.ErrCodeNotJoined, Message: "未知连接"}
	ErrNotDrawer         = &GameError{Code: protocol.ErrCodeNotDrawer, Message: "您不是当前画手"}
	ErrWrongState        = &GameError{Code: protocol.ErrCodeWrongState, Message: "当前阶段不允许该操作"}
	ErrEmptyDictionary   = &GameError{Code: protocol.ErrCodeEmptyDictionary, Message: "词库为空"}
	ErrInvalidMessage    = &GameError{Code: protocol.ErrCodeInvalidMsg, Message: "消息为空或过长"}

	// ErrConnectionClosed 连接已关闭或正在关闭（例如发送缓冲区已满被断开）
	ErrConnectionClosed = &GameError{Code: protocol.ErrCodeNotJoined, Message: "连接已关闭"}
)
