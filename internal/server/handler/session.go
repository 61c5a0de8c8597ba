package handler

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/sketchers/internal/apperrors"
	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
	"github.com/palemoky/sketchers/internal/types"
)

// handleJoin 加入会话；昵称错误由会话直接回复 joinError
func (h *Handler) handleJoin(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.JoinPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	if h.server != nil && h.server.IsMaintenanceMode() {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeServerMaintenance))
		return
	}

	h.logResult(client, msg.Type, h.session.Join(client.GetID(), *payload))
}

// handleLeave 主动离开
func (h *Handler) handleLeave(client types.ClientInterface) {
	h.logResult(client, protocol.MsgLeave, h.session.Leave(client.GetID()))
}

// handleChat 聊天与猜词共用一个入口
func (h *Handler) handleChat(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.ChatPayload](msg)
	if err != nil {
		return
	}

	if h.chatLimiter != nil {
		if allowed, reason := h.chatLimiter.AllowChat(client.GetID()); !allowed {
			client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, reason))
			return
		}
	}

	h.logResult(client, msg.Type, h.session.Guess(client.GetID(), payload.Text))
}

// handleDraw 画笔线段
func (h *Handler) handleDraw(client types.ClientInterface, msg *protocol.Message) {
	stroke, err := codec.ParsePayload[protocol.Stroke](msg)
	if err != nil {
		return
	}
	h.logResult(client, msg.Type, h.session.Draw(client.GetID(), *stroke))
}

func (h *Handler) handleClearCanvas(client types.ClientInterface) {
	h.logResult(client, protocol.MsgClearCanvas, h.session.ClearCanvas(client.GetID()))
}

func (h *Handler) handleReadyToDraw(client types.ClientInterface) {
	h.logResult(client, protocol.MsgReadyToDraw, h.session.ReadyToDraw(client.GetID()))
}

// logResult 会话拒绝的操作不回复客户端，只记录日志
func (h *Handler) logResult(client types.ClientInterface, msgType protocol.MessageType, err error) {
	if err == nil {
		return
	}

	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		log.Debug().Str("conn", client.GetID()).Str("type", string(msgType)).Int("code", gameErr.Code).Msg(gameErr.Message)
		return
	}
	log.Error().Err(err).Str("conn", client.GetID()).Str("type", string(msgType)).Msg("处理消息失败")
}
