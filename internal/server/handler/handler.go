package handler

import (
	"github.com/rs/zerolog/log"

	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
	"github.com/palemoky/sketchers/internal/types"
)

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server      types.ServerInterface
	Session     types.GameSession
	ChatLimiter types.ChatLimiter
	Leaderboard types.Leaderboard // 未启用 Redis 时为 nil
	Tag         string
}

// Handler 消息处理器：解析载荷后转交会话
type Handler struct {
	server      types.ServerInterface
	session     types.GameSession
	chatLimiter types.ChatLimiter
	leaderboard types.Leaderboard
	tag         string
	handlers    map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		server:      deps.Server,
		session:     deps.Session,
		chatLimiter: deps.ChatLimiter,
		leaderboard: deps.Leaderboard,
		tag:         deps.Tag,
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 会话操作
		protocol.MsgJoin:        h.handleJoin,
		protocol.MsgLeave:       func(c types.ClientInterface, _ *protocol.Message) { h.handleLeave(c) },
		protocol.MsgChat:        h.handleChat,
		protocol.MsgDraw:        h.handleDraw,
		protocol.MsgClearCanvas: func(c types.ClientInterface, _ *protocol.Message) { h.handleClearCanvas(c) },
		protocol.MsgReadyToDraw: func(c types.ClientInterface, _ *protocol.Message) { h.handleReadyToDraw(c) },

		// 连接与查询
		protocol.MsgPing:           h.handlePing,
		protocol.MsgGetLeaderboard: h.handleGetLeaderboard,
	}
}

// Handle 处理消息
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	if handler, ok := h.handlers[msg.Type]; ok {
		handler(client, msg)
		return
	}

	log.Warn().Str("type", string(msg.Type)).Str("conn", client.GetID()).Int("payload", len(msg.Payload)).Msg("⚠️ 未知消息类型")
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
}
