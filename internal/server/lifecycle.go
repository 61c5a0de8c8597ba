package server

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/sketchers/internal/game/session"
	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
)

const (
	monitorInterval       = 30 * time.Second
	rateLimiterIdle       = 10 * time.Minute
	shutdownCheckInterval = time.Second
	shutdownNoticeDelay   = 3 * time.Second
)

// monitorStats 定期输出服务器状态并清理限流记录
func (s *Server) monitorStats(ctx context.Context) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		log.Info().
			Int("online", s.GetOnlineCount()).
			Int("players", s.session.UserCount()).
			Str("state", s.session.State().String()).
			Int("round", s.session.Round()).
			Int("goroutines", runtime.NumGoroutine()).
			Str("conns", fmt.Sprintf("%d/%d", len(s.semaphore), s.maxConnections)).
			Float64("memMB", float64(m.Alloc)/1024/1024).
			Msg("📊 [监控]")

		if n := s.rateLimiter.Cleanup(rateLimiterIdle); n > 0 {
			log.Debug().Int("removed", n).Msg("清理限流记录")
		}
	}
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接和新加入
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()

	s.Broadcast(codec.NewErrorMessageWithText(protocol.ErrCodeServerMaintenance, "👷🏻‍♂️ 维护模式：暂停新玩家加入"))
	log.Info().Msg("🔧 进入维护模式：停止新连接和加入")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

// GracefulShutdown 进入维护模式，等待当前回合结束（最多 timeout）后关闭
func (s *Server) GracefulShutdown(timeout time.Duration) {
	s.EnterMaintenanceMode()

	if s.waitForRoundEnd(timeout) {
		log.Info().Msg("✅ 当前回合已结束")
	} else {
		log.Warn().Dur("timeout", timeout).Msg("⚠️ 等待超时，强制关闭进行中的回合")
	}

	s.Broadcast(codec.NewErrorMessageWithText(protocol.ErrCodeServerMaintenance,
		fmt.Sprintf("🚧 服务器将在 %d 秒后停机维护！", int(shutdownNoticeDelay/time.Second))))
	time.Sleep(shutdownNoticeDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Shutdown(ctx)
}

// waitForRoundEnd 作画中的回合结束后返回 true
func (s *Server) waitForRoundEnd(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(shutdownCheckInterval)
	defer ticker.Stop()

	for {
		if s.session.State() != session.StateDrawing {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		log.Info().Int("round", s.session.Round()).Msg("⏳ 等待当前回合结束...")
		<-ticker.C
	}
}

// Shutdown 停止监听、关闭所有连接与 Redis
func (s *Server) Shutdown(ctx context.Context) {
	s.stopMonitor()

	if err := s.http.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP 服务关闭失败")
	}

	s.session.Close()
	for _, client := range s.snapshotClients() {
		client.Close()
	}

	if s.redis != nil {
		_ = s.redis.Close()
	}

	log.Info().Msg("服务器已关闭")
}
