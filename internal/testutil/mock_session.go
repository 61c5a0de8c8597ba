//go:build !production

package testutil

import (
	"github.com/stretchr/testify/mock"

	"github.com/palemoky/sketchers/internal/protocol"
)

// MockSession 实现 types.GameSession 的 mock
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Join(connID string, req protocol.JoinPayload) error {
	return m.Called(connID, req).Error(0)
}

func (m *MockSession) Leave(connID string) error {
	return m.Called(connID).Error(0)
}

func (m *MockSession) Disconnect(connID string) error {
	return m.Called(connID).Error(0)
}

func (m *MockSession) Guess(connID, text string) error {
	return m.Called(connID, text).Error(0)
}

func (m *MockSession) Draw(connID string, stroke protocol.Stroke) error {
	return m.Called(connID, stroke).Error(0)
}

func (m *MockSession) ClearCanvas(connID string) error {
	return m.Called(connID).Error(0)
}

func (m *MockSession) ReadyToDraw(connID string) error {
	return m.Called(connID).Error(0)
}
