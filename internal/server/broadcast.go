package server

import (
	"github.com/palemoky/sketchers/internal/apperrors"
	"github.com/palemoky/sketchers/internal/protocol"
)

// GetOnlineCount 当前连接数（包括尚未加入会话的连接）
func (s *Server) GetOnlineCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Emit 把会话事件投递给指定连接，实现 session.Relay
func (s *Server) Emit(connID string, msg *protocol.Message) error {
	s.clientsMu.RLock()
	client, ok := s.clients[connID]
	s.clientsMu.RUnlock()

	if !ok {
		return apperrors.ErrUnknownConnection
	}
	return client.trySend(msg)
}

// Broadcast 广播消息给所有连接
func (s *Server) Broadcast(msg *protocol.Message) {
	for _, client := range s.snapshotClients() {
		client.SendMessage(msg)
	}
}
