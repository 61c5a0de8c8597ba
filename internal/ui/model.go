// Package ui 你画我猜的终端客户端
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/sound"
)

// Phase 客户端所处阶段
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseNaming           // 输入昵称
	PhaseJoining          // 已发送 join，等待 joined
	PhasePlaying
	PhaseLeft
)

const (
	maxChatLines     = 200
	notificationTTL  = 3 * time.Second
	leaderboardLimit = 10
)

// Conn 客户端依赖的连接能力，由 transport.Client 实现
type Conn interface {
	Connect() error
	Close()
	IsConnected() bool
	StartHeartbeat()
	Receive() (*protocol.Message, error)
	Latency() int64

	Join(nick, color string) error
	Leave() error
	Chat(text string) error
	ClearCanvas() error
	ReadyToDraw() error
	GetLeaderboard(limit int) error
}

// Sounds 提示音播放
type Sounds interface {
	Init() error
	Play(sound.Cue)
}

// --- tea 消息 ---

type serverMessage struct{ msg *protocol.Message }

type connectedMsg struct{}

type connectionErrorMsg struct{ err error }

type reconnectingMsg struct{ attempt, maxTries int }

type reconnectedMsg struct{}

type tickMsg time.Time

type clearNotificationMsg struct{}

// Model 客户端主模型
type Model struct {
	conn   Conn
	sounds Sounds
	now    func() time.Time

	phase Phase
	nick  string
	color string
	err   string

	// 会话状态
	state      string
	round      int
	drawer     protocol.UserRef
	nextPlayer *protocol.UserRef
	hint       string
	word       string // 仅画手可见，或回合结束后公布
	difficulty string
	deadline   time.Time
	guessed    bool
	users      []protocol.UserInfo
	strokes    int

	chat         []string
	leaderboard  []protocol.LeaderboardEntry
	notification string
	reconnecting bool

	// 连接层回调产生的事件
	events chan tea.Msg

	input  textinput.Model
	width  int
	height int
}

// NewModel 创建模型；nick 为空时启动后先询问昵称
func NewModel(conn Conn, sounds Sounds, nick, color string) *Model {
	ti := textinput.New()
	ti.CharLimit = 100
	ti.Width = 40
	ti.Focus()

	m := &Model{
		conn:   conn,
		sounds: sounds,
		now:    time.Now,
		phase:  PhaseConnecting,
		nick:   nick,
		color:  color,
		events: make(chan tea.Msg, 8),
		input:  ti,
	}
	return m
}


// NotifyReconnecting 供 transport.Client.OnReconnecting 使用
func (m *Model) NotifyReconnecting(attempt, maxTries int) {
	select {
	case m.events <- reconnectingMsg{attempt: attempt, maxTries: maxTries}:
	default:
	}
}

// NotifyReconnected 供 transport.Client.OnReconnect 使用
func (m *Model) NotifyReconnected() {
	select {
	case m.events <- reconnectedMsg{}:
	default:
	}
}

func (m *Model) Init() tea.Cmd {
	go func() {
		_ = m.sounds.Init()
	}()

	return tea.Batch(
		m.connect(),
		m.listenForEvents(),
		textinput.Blink,
		tick(),
	)
}

func (m *Model) connect() tea.Cmd {
	return func() tea.Msg {
		if err := m.conn.Connect(); err != nil {
			return connectionErrorMsg{err: err}
		}
		return connectedMsg{}
	}
}

func (m *Model) listenForMessages() tea.Cmd {
	return func() tea.Msg {
		msg, err := m.conn.Receive()
		if err != nil {
			return connectionErrorMsg{err: err}
		}
		return serverMessage{msg: msg}
	}
}

func (m *Model) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func clearNotificationAfter() tea.Cmd {
	return tea.Tick(notificationTTL, func(time.Time) tea.Msg { return clearNotificationMsg{} })
}

// Update 处理 tea 消息
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case connectedMsg:
		m.err = ""
		m.conn.StartHeartbeat()
		cmds = append(cmds, m.listenForMessages())
		if m.nick == "" {
			m.enterNaming()
		} else {
			cmds = append(cmds, m.sendJoin())
		}

	case connectionErrorMsg:
		if m.phase == PhaseLeft {
			return m, tea.Quit
		}
		m.err = fmt.Sprintf("连接已断开: %v\n\n按 Ctrl+C 退出", msg.err)
		m.phase = PhaseConnecting

	case reconnectingMsg:
		m.reconnecting = true
		m.notification = fmt.Sprintf("🔄 正在重连 (%d/%d)...", msg.attempt, msg.maxTries)
		cmds = append(cmds, m.listenForEvents())

	case reconnectedMsg:
		m.reconnecting = false
		m.notification = "✅ 重连成功！"
		cmds = append(cmds, m.listenForEvents(), clearNotificationAfter())

	case clearNotificationMsg:
		m.notification = ""

	case tickMsg:
		cmds = append(cmds, tick())

	case serverMessage:
		if cmd := m.handleServerMessage(msg.msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if m.conn.IsConnected() {
			cmds = append(cmds, m.listenForMessages())
		}

	case tea.KeyMsg:
		if handled, cmd := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) enterNaming() {
	m.phase = PhaseNaming
	m.input.Reset()
	m.input.Placeholder = "输入昵称后回车"
	m.input.Focus()
}

func (m *Model) sendJoin() tea.Cmd {
	if err := m.conn.Join(m.nick, m.color); err != nil {
		return m.notify(fmt.Sprintf("⚠️ 加入失败: %v", err))
	}
	m.phase = PhaseJoining
	return nil
}

// notify 显示一条临时通知
func (m *Model) notify(text string) tea.Cmd {
	m.notification = text
	return clearNotificationAfter()
}

func (m *Model) addChat(line string) {
	m.chat = append(m.chat, line)
	if len(m.chat) > maxChatLines {
		m.chat = m.chat[len(m.chat)-maxChatLines:]
	}
}

func (m *Model) isDrawer() bool {
	return m.state == "drawing" && m.drawer.Nick == m.nick
}

// remaining 当前阶段剩余秒数
func (m *Model) remaining() int {
	if m.deadline.IsZero() {
		return 0
	}
	left := m.deadline.Sub(m.now())
	if left <= 0 {
		return 0
	}
	return int(left.Round(time.Second) / time.Second)
}

// Phase 当前阶段
func (m *Model) Phase() Phase { return m.phase }
