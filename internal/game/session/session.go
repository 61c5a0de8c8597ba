// Package session 实现你画我猜的会话状态机：成员、轮换、计时、提示、计分与断线恢复。
// 一个 Session 对应一个房间，所有入站事件与定时回调都在 mu 下串行执行。
package session

import (
	"context"
	"errors"
	"crypto/rand"
	"encoding/hex"
	"html"
	mathrand "math/rand/v2"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/sketchers/internal/apperrors"
	"github.com/palemoky/sketchers/internal/game/dictionary"
	"github.com/palemoky/sketchers/internal/logger"
	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
)

// Session 房间会话
type Session struct {
	mu sync.Mutex

	cfg      Config
	words    []dictionary.Entry
	relay    Relay
	sched    Scheduler
	now      func() time.Time
	intn     func(n int) int
	recorder RoundRecorder
	log      zerolog.Logger

	users        map[string]*User // connID -> user
	disconnected map[string]savedUser
	nextSeq      int

	strokes []protocol.Stroke

	word          dictionary.Entry
	wordRunes     []rune
	hint          []rune
	masked        []int // 仍未揭示的位置
	hintsRevealed int
	hintsToReveal int

	drawerID  string
	drawerSeq int
	drawerRef protocol.UserRef

	round          int
	state          State
	stateEnteredAt time.Time
	stateInfo      protocol.StatePayload

	// 每次取消定时器时递增，过期回调据此丢弃
	epoch  uint64
	timers []Timer
	closed bool
}

// Option 会话选项
type Option func(*Session)

// WithScheduler 替换定时器实现（测试中手动触发）
func WithScheduler(s Scheduler) Option {
	return func(gs *Session) { gs.sched = s }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(gs *Session) { gs.now = now }
}

// WithRand 替换提示位置的随机源
func WithRand(intn func(n int) int) Option {
	return func(gs *Session) { gs.intn = intn }
}

// WithRecorder 设置回合记录器
func WithRecorder(r RoundRecorder) Option {
	return func(gs *Session) { gs.recorder = r }
}

// WithLogger 设置 logger
func WithLogger(l zerolog.Logger) Option {
	return func(gs *Session) { gs.log = l }
}

// New 创建会话，初始处于大厅状态
func New(cfg Config, words []dictionary.Entry, relay Relay, opts ...Option) *Session {
	s := &Session{
		cfg:          cfg,
		words:        words,
		relay:        relay,
		sched:        wallScheduler{},
		now:          time.Now,
		intn:         mathrand.IntN,
		log:          log.Logger,
		users:        make(map[string]*User),
		disconnected: make(map[string]savedUser),
		state:        StateLobby,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("tag", cfg.Tag).Logger()
	s.stateEnteredAt = s.now()
	s.stateInfo = protocol.StatePayload{State: StateLobby.String()}
	return s
}

// Close 停止所有定时器，之后到期的回调不再生效
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelTimers()
}

// Notify 向所有已加入的玩家广播一条消息
func (s *Session) Notify(msg *protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcast(msg)
}

// --- 只读查询 ---

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Round 当前回合数
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Hint 当前提示
func (s *Session) Hint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.hint)
}

// Users 按分数降序的玩家列表
func (s *Session) Users() []protocol.UserInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedUsers()
}

// UserCount 已加入的玩家数
func (s *Session) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// IsJoined 连接是否已加入
func (s *Session) IsJoined(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[connID]
	return ok
}

// Drawer 当前画手的连接 ID
func (s *Session) Drawer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawerID
}

// --- 内部工具（调用方持有 mu） ---

func (s *Session) emit(connID string, msgType protocol.MessageType, payload any) {
	s.send(connID, codec.MustNewMessage(msgType, payload))
}

func (s *Session) send(connID string, msg *protocol.Message) {
	err := s.relay.Emit(connID, msg)
	if err == nil {
		return
	}
	// 慢客户端或正在关闭的连接，随后会走 Disconnect
	if errors.Is(err, apperrors.ErrConnectionClosed) {
		s.log.Warn().Err(err).Str("conn", connID).Str("type", string(msg.Type)).Msg("连接已关闭，消息丢弃")
		return
	}
	s.log.Error().Err(err).Str("conn", connID).Str("type", string(msg.Type)).
		Str("stack", string(debug.Stack())).Msg("❗ 投递到未知连接")
}

func (s *Session) broadcastType(msgType protocol.MessageType, payload any) {
	s.broadcast(codec.MustNewMessage(msgType, payload))
}

func (s *Session) broadcast(msg *protocol.Message) {
	for connID := range s.users {
		s.send(connID, msg)
	}
}

// lookup 查找连接对应的玩家，未加入时记录诊断
func (s *Session) lookup(connID, op string) (*User, bool) {
	u, ok := s.users[connID]
	if !ok {
		s.log.Warn().Str("conn", connID).Str("op", op).Msg("⚠️ 未加入的连接发来操作，已忽略")
	}
	return u, ok
}

// sanitize HTML 转义并去除首尾空白；内容被改写时记录可能的注入
func (s *Session) sanitize(text, who string) string {
	trimmed := strings.TrimSpace(text)
	escaped := html.EscapeString(trimmed)
	if escaped != trimmed {
		s.log.Warn().Str("from", who).Str("raw", trimmed).Str("escaped", escaped).Msg("🛡️ 可能的注入攻击")
	}
	return escaped
}

func (s *Session) sortedUsers() []protocol.UserInfo {
	list := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].TotalScore != list[j].TotalScore {
			return list[i].TotalScore > list[j].TotalScore
		}
		return list[i].JoinSeq < list[j].JoinSeq
	})

	infos := make([]protocol.UserInfo, len(list))
	for i, u := range list {
		infos[i] = u.info()
	}
	return infos
}

func (s *Session) nickInUse(nick string) bool {
	for _, u := range s.users {
		if u.Nick == nick {
			return true
		}
	}
	return false
}

func (s *Session) elapsedSecs() int {
	return int(s.now().Sub(s.stateEnteredAt) / time.Second)
}

// --- 定时任务 ---

// schedule 登记一个定时任务；任务在 mu 下执行，epoch 变化后失效
func (s *Session) schedule(d time.Duration, fn func()) {
	epoch := s.epoch
	t := s.sched.AfterFunc(d, func() {
		defer func() {
			if r := recover(); r != nil {
				logger.LogPanic(r)
			}
		}()

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.epoch != epoch {
			return
		}
		fn()
	})
	s.timers = append(s.timers, t)
}

func (s *Session) cancelTimers() {
	s.epoch++
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *Session) recordRound(result RoundResult) {
	if s.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.recorder.RecordRound(ctx, result); err != nil {
			s.log.Warn().Err(err).Int("round", result.Round).Msg("记录回合结果失败")
		}
	}()
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
