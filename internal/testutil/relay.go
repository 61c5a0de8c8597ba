//go:build !production

package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/palemoky/sketchers/internal/apperrors"
	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
)

// RecordingRelay 记录每个连接收到的消息；标记为离线的连接返回错误
type RecordingRelay struct {
	mu       sync.Mutex
	messages map[string][]*protocol.Message
	offline  map[string]bool
	closed   map[string]bool
}

// NewRecordingRelay 创建记录型 relay
func NewRecordingRelay() *RecordingRelay {
	return &RecordingRelay{
		messages: make(map[string][]*protocol.Message),
		offline:  make(map[string]bool),
		closed:   make(map[string]bool),
	}
}

// Emit 实现 session.Relay
func (r *RecordingRelay) Emit(connID string, msg *protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offline[connID] {
		return apperrors.ErrUnknownConnection
	}
	if r.closed[connID] {
		return apperrors.ErrConnectionClosed
	}
	r.messages[connID] = append(r.messages[connID], msg)
	return nil
}

// SetOffline 之后发往该连接的消息都会失败
func (r *RecordingRelay) SetOffline(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline[connID] = true
}

// SetClosed 模拟正在关闭的连接
func (r *RecordingRelay) SetClosed(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed[connID] = true
}

// Messages 某连接收到的全部消息
func (r *RecordingRelay) Messages(connID string) []*protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*protocol.Message(nil), r.messages[connID]...)
}

// Types 某连接收到的消息类型序列
func (r *RecordingRelay) Types(connID string) []protocol.MessageType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]protocol.MessageType, len(r.messages[connID]))
	for i, m := range r.messages[connID] {
		types[i] = m.Type
	}
	return types
}

// Count 某连接收到指定类型消息的次数
func (r *RecordingRelay) Count(connID string, t protocol.MessageType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages[connID] {
		if m.Type == t {
			n++
		}
	}
	return n
}

// Last 某连接最后一条指定类型的消息
func (r *RecordingRelay) Last(connID string, t protocol.MessageType) *protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[connID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == t {
			return msgs[i]
		}
	}
	return nil
}

// Reset 清空记录
func (r *RecordingRelay) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = make(map[string][]*protocol.Message)
}

// Payload 解析消息载荷，失败时终止测试
func Payload[T any](t *testing.T, msg *protocol.Message) T {
	t.Helper()
	require.NotNil(t, msg, "message is nil")
	p, err := codec.ParsePayload[T](msg)
	require.NoError(t, err)
	return *p
}
