//go:build !production

package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/sketchers/internal/protocol"
)

// MockLeaderboard 实现 types.Leaderboard 的 mock
type MockLeaderboard struct {
	mock.Mock
}

func (m *MockLeaderboard) Top(ctx context.Context, tag string, limit int) ([]protocol.LeaderboardEntry, error) {
	args := m.Called(ctx, tag, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]protocol.LeaderboardEntry), args.Error(1)
}
