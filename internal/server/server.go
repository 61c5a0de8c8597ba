// Package server 提供 WebSocket 接入层：连接管理、限流、消息分发与会话中继。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/sketchers/internal/config"
	"github.com/palemoky/sketchers/internal/game/dictionary"
	"github.com/palemoky/sketchers/internal/game/session"
	"github.com/palemoky/sketchers/internal/server/handler"
	"github.com/palemoky/sketchers/internal/server/storage"
	"github.com/palemoky/sketchers/internal/types"
)

// Server WebSocket 服务器
type Server struct {
	config  *config.Config
	redis   *redis.Client       // 未启用时为 nil
	store   *storage.RedisStore // 未启用时为 nil
	session *session.Session
	handler *handler.Handler

	clients   map[string]*Client
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader
	mux      *http.ServeMux
	http     *http.Server

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter
	chatLimiter    *ChatRateLimiter
	ipFilter       *IPFilter

	// 连接控制
	maxConnections int
	semaphore      chan struct{}

	// 维护模式
	maintenanceMode bool
	maintenanceMu   sync.RWMutex

	monitorCtx  context.Context
	stopMonitor context.CancelFunc
}

// NewServer 创建服务器实例；启用 Redis 时连接失败直接返回错误
func NewServer(cfg *config.Config, words []dictionary.Entry) (*Server, error) {
	s := &Server{
		config:  cfg,
		clients: make(map[string]*Client),
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(cfg.Security.MessageLimit.MaxPerSecond, cfg.Security.MessageLimit.Burst),
		chatLimiter:    NewChatRateLimiter(cfg.Security.ChatLimit.MaxPerSecond, cfg.Security.ChatLimit.Burst),
		ipFilter:       NewIPFilter(cfg.Security.BlockedIPs...),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
	}

	var opts []session.Option
	var leaderboard types.Leaderboard
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis 连接失败: %w", err)
		}

		s.redis = rdb
		s.store = storage.NewRedisStore(rdb, cfg.Redis.HistorySize)
		opts = append(opts, session.WithRecorder(s.store))
		leaderboard = s.store
		log.Info().Str("addr", cfg.Redis.Addr).Msg("🗄️ 已连接 Redis，回合记录与排行榜已启用")
	}

	s.session = session.New(session.ConfigFrom(cfg.Game), words, s, opts...)
	s.handler = handler.NewHandler(handler.HandlerDeps{
		Server:      s,
		Session:     s.session,
		ChatLimiter: s.chatLimiter,
		Leaderboard: leaderboard,
		Tag:         cfg.Game.Tag,
	})

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originChecker.Check,
	}
	s.mux = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.monitorCtx, s.stopMonitor = context.WithCancel(context.Background())

	log.Info().
		Int("connPerSecond", cfg.Security.RateLimit.MaxPerSecond).
		Float64("msgPerSecond", cfg.Security.MessageLimit.MaxPerSecond).
		Float64("chatPerSecond", cfg.Security.ChatLimit.MaxPerSecond).
		Int("maxConnections", cfg.Server.MaxConnections).
		Msg("🔒 安全配置")

	return s, nil
}

// routes 注册 HTTP 路由
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/leaderboard", s.handleLeaderboard)
	if dir := s.config.Server.StaticDir; dir != "" {
		mux.Handle("/", http.FileServer(http.Dir(dir)))
		log.Info().Str("dir", dir).Msg("📁 提供静态文件")
	}
	return mux
}

// Handler 返回 HTTP 处理器（测试中配合 httptest 使用）
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Session 返回房间会话
func (s *Server) Session() *session.Session {
	return s.session
}

// Start 启动服务器，阻塞直到关闭
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	go s.monitorStats(s.monitorCtx)

	log.Info().Str("addr", addr).Int("cpus", runtime.NumCPU()).Msgf("🚀 服务器启动在 ws://%s/ws", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
