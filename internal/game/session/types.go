package session

import (
	"context"
	"time"

	"github.com/palemoky/sketchers/internal/config"
	"github.com/palemoky/sketchers/internal/protocol"
)

const (
	// MaxNickLength 昵称最大长度（转义后）
	MaxNickLength = 32
	// MaxMessageLength 聊天 / 猜词最大长度
	MaxMessageLength = 256

	// hintPlaceholder 提示中未揭示字符的占位符
	hintPlaceholder = '_'
	// preRevealed 开局即揭示的字符
	preRevealed = "- "

	recordTimeout = 3 * time.Second
)

// State 会话状态
type State int

const (
	StateLobby        State = iota // 大厅：无画手，任何人可开始
	StateDrawing                   // 作画中
	StateIntermission              // 回合间隔
)

func (s State) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateDrawing:
		return "drawing"
	case StateIntermission:
		return "intermission"
	default:
		return "unknown"
	}
}

// Relay 按连接 ID 投递消息，由传输层实现；连接不存在时返回错误
type Relay interface {
	Emit(connID string, msg *protocol.Message) error
}

// Timer 可取消的定时任务
type Timer interface {
	Stop() bool
}

// Scheduler 定时任务调度器
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RoundResult 一个回合的结果
type RoundResult struct {
	Tag        string         `json:"tag"`
	Round      int            `json:"round"`
	Word       string         `json:"word"`
	Drawer     string         `json:"drawer"`
	IsPass     bool           `json:"isPass"`
	AllGuessed bool           `json:"allGuessed"`
	Points     map[string]int `json:"points"` // 昵称 -> 本回合得分
	EndedAt    time.Time      `json:"endedAt"`
}

// RoundRecorder 记录回合结果（尽力而为，失败只记日志）
type RoundRecorder interface {
	RecordRound(ctx context.Context, result RoundResult) error
}

// Config 会话配置
type Config struct {
	RoundDuration        time.Duration
	IntermissionDuration time.Duration
	CorrectGuessEndsTurn bool
	ScoreByRemainingTime bool
	AutoSelectNextPlayer bool
	MaxHints             int
	MaxHintFraction      float64
	FlatScore            int
	StrictReconnect      bool
	MaxStrokes           int
	Tag                  string
}

// DefaultConfig 返回默认会话配置
func DefaultConfig() Config {
	return ConfigFrom(config.Default().Game)
}

// ConfigFrom 从服务端配置构造会话配置
func ConfigFrom(g config.GameConfig) Config {
	return Config{
		RoundDuration:        g.RoundDurationTime(),
		IntermissionDuration: g.IntermissionDurationTime(),
		CorrectGuessEndsTurn: g.CorrectGuessEndsTurn,
		ScoreByRemainingTime: g.ScoreByRemainingTime,
		AutoSelectNextPlayer: g.AutoSelectNextPlayer,
		MaxHints:             g.MaxHints,
		MaxHintFraction:      g.MaxHintFraction,
		FlatScore:            g.FlatScore,
		StrictReconnect:      g.StrictReconnect,
		MaxStrokes:           g.MaxStrokes,
		Tag:                  g.Tag,
	}
}

// User 已加入会话的玩家
type User struct {
	ConnID           string
	Nick             string
	Color            string
	TotalScore       int
	ScoreThisRound   *int // 本回合得分，未得分时为 nil
	GuessedCorrectly bool
	IsDrawing        bool
	JoinSeq          int // 加入序号，决定轮换顺序，重连时重新分配

	token string
}

func (u *User) ref() protocol.UserRef {
	return protocol.UserRef{Nick: u.Nick, Color: u.Color}
}

func (u *User) info() protocol.UserInfo {
	info := protocol.UserInfo{
		Nick:             u.Nick,
		Color:            u.Color,
		Score:            u.TotalScore,
		GuessedCorrectly: u.GuessedCorrectly,
		IsDrawing:        u.IsDrawing,
	}
	if u.ScoreThisRound != nil {
		v := *u.ScoreThisRound
		info.ScoreThisRound = &v
	}
	return info
}

// addScore 累加本回合得分与总分
func (u *User) addScore(points int) {
	if u.ScoreThisRound == nil {
		u.ScoreThisRound = new(int)
	}
	*u.ScoreThisRound += points
	u.TotalScore += points
}

// savedUser 断线玩家的存档
type savedUser struct {
	user  User
	round int
}
