package ui

import (
	"encoding/json"
	"fmt"
	"html"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
	"github.com/palemoky/sketchers/internal/sound"
)

type messageHandler func(m *Model, msg *protocol.Message) tea.Cmd

var messageHandlers = map[protocol.MessageType]messageHandler{
	// 加入与离开
	protocol.MsgJoined:     handleJoined,
	protocol.MsgJoinError:  handleJoinError,
	protocol.MsgYouLeft:    handleYouLeft,
	protocol.MsgUserJoined: handleUserJoined,
	protocol.MsgUserLeft:   handleUserLeft,
	protocol.MsgUsers:      handleUsers,

	// 回合
	protocol.MsgState:        handleState,
	protocol.MsgStartRound:   handleStartRound,
	protocol.MsgYouDraw:      handleYouDraw,
	protocol.MsgHint:         handleHint,
	protocol.MsgWordGuessed:  handleWordGuessed,
	protocol.MsgYouGuessedIt: handleYouGuessedIt,
	protocol.MsgEndRound:     handleEndRound,

	// 画布
	protocol.MsgDraw:        func(m *Model, _ *protocol.Message) tea.Cmd { m.strokes++; return nil },
	protocol.MsgClearCanvas: func(m *Model, _ *protocol.Message) tea.Cmd { m.strokes = 0; return nil },
	protocol.MsgDrawCanvas:  handleDrawCanvas,

	protocol.MsgChat:        handleChat,
	protocol.MsgLeaderboard: handleLeaderboard,
	protocol.MsgError:       handleError,
}

// handleServerMessage 分发服务器消息并播放对应提示音
func (m *Model) handleServerMessage(msg *protocol.Message) tea.Cmd {
	handler, ok := messageHandlers[msg.Type]
	if !ok {
		log.Debug().Str("type", string(msg.Type)).Msg("忽略未处理的消息")
		return nil
	}
	if cue, ok := sound.CueFor(msg.Type); ok {
		m.sounds.Play(cue)
	}
	return handler(m, msg)
}

func handleJoined(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.JoinedPayload](msg)
	if err != nil {
		return nil
	}
	m.nick = p.Nick
	m.color = p.Color
	m.phase = PhasePlaying
	m.input.Reset()
	m.input.Placeholder = "输入猜测或聊天内容"
	m.input.Focus()
	_ = m.conn.GetLeaderboard(leaderboardLimit)
	return nil
}

func handleJoinError(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.JoinErrorPayload](msg)
	if err != nil {
		return nil
	}
	m.nick = ""
	m.enterNaming()
	m.input.Placeholder = "换个昵称试试"
	return m.notify("⚠️ " + p.Error)
}

func handleYouLeft(m *Model, _ *protocol.Message) tea.Cmd {
	m.phase = PhaseLeft
	m.conn.Close()
	return tea.Quit
}

func handleUserJoined(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.UserEventPayload](msg)
	if err != nil {
		return nil
	}
	m.addChat(systemStyle.Render(fmt.Sprintf("👋 %s 加入了游戏", p.Nick)))
	return nil
}

func handleUserLeft(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.UserEventPayload](msg)
	if err != nil {
		return nil
	}
	m.addChat(systemStyle.Render(fmt.Sprintf("🚪 %s 离开了游戏", p.Nick)))
	return nil
}

func handleUsers(m *Model, msg *protocol.Message) tea.Cmd {
	var users []protocol.UserInfo
	if err := json.Unmarshal(msg.Payload, &users); err != nil {
		return nil
	}
	m.users = users
	for _, u := range users {
		if u.Nick == m.nick {
			m.guessed = u.GuessedCorrectly
		}
	}
	return nil
}

func handleState(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.StatePayload](msg)
	if err != nil {
		return nil
	}

	m.state = p.State
	m.deadline = time.Time{}
	if p.Time > 0 {
		m.deadline = m.now().Add(time.Duration(p.Time-p.TimePassed) * time.Second)
	}

	switch p.State {
	case "drawing":
		m.round = p.Round
		m.drawer = protocol.UserRef{Nick: p.Nick, Color: p.Color}
		m.hint = p.Hint
		m.nextPlayer = nil
		m.guessed = p.GuessedCorrectly != nil && *p.GuessedCorrectly
		if m.drawer.Nick != m.nick {
			m.word = ""
		}
	case "intermission":
		m.nextPlayer = p.NextPlayer
		m.word = p.Word
		m.hint = ""
	default:
		m.drawer = protocol.UserRef{}
		m.nextPlayer = nil
		m.word = ""
		m.hint = ""
	}
	return nil
}

func handleStartRound(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.StartRoundPayload](msg)
	if err != nil {
		return nil
	}
	m.guessed = false
	m.addChat(systemStyle.Render(fmt.Sprintf("🎨 第 %d 回合：%s 作画", p.Round, p.Player.Nick)))
	return nil
}

func handleYouDraw(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.YouDrawPayload](msg)
	if err != nil {
		return nil
	}
	m.word = p.Word
	m.difficulty = p.Difficulty
	return m.notify("🖌️ 轮到你画了！Ctrl+R 跳过")
}

func handleHint(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.HintPayload](msg)
	if err != nil {
		return nil
	}
	m.hint = p.Hint
	return nil
}

func handleWordGuessed(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.WordGuessedPayload](msg)
	if err != nil {
		return nil
	}
	m.addChat(successStyle.Render(fmt.Sprintf("🎉 %s 猜中了！(%d 秒)", p.Nick, p.TimePassedSecs)))
	return nil
}

func handleYouGuessedIt(m *Model, _ *protocol.Message) tea.Cmd {
	m.guessed = true
	return m.notify("🎉 你猜中了！")
}

func handleEndRound(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.EndRoundPayload](msg)
	if err != nil {
		return nil
	}

	var line string
	switch {
	case p.IsPass:
		line = fmt.Sprintf("⏭️ 画手跳过，答案是 %s", p.Word)
	case p.AllGuessed:
		line = fmt.Sprintf("🏆 全员猜中！答案是 %s", p.Word)
	default:
		line = fmt.Sprintf("⏰ 时间到，答案是 %s", p.Word)
	}
	m.addChat(systemStyle.Render(line))
	m.word = p.Word
	_ = m.conn.GetLeaderboard(leaderboardLimit)
	return nil
}

func handleDrawCanvas(m *Model, msg *protocol.Message) tea.Cmd {
	var strokes []protocol.Stroke
	if err := json.Unmarshal(msg.Payload, &strokes); err != nil {
		return nil
	}
	m.strokes = len(strokes)
	return nil
}

func handleChat(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.ChatPayload](msg)
	if err != nil {
		return nil
	}
	// 服务器转发前已做 HTML 转义
	m.addChat(fmt.Sprintf("%s: %s", nickStyle(p.Color).Render(html.UnescapeString(p.Nick)), html.UnescapeString(p.Text)))
	return nil
}

func handleLeaderboard(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.LeaderboardPayload](msg)
	if err != nil {
		return nil
	}
	m.leaderboard = p.Entries
	return nil
}

func handleError(m *Model, msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.ErrorPayload](msg)
	if err != nil {
		return nil
	}
	// 排行榜不可用时静默
	if p.Code == protocol.ErrCodeStorage {
		return nil
	}
	return m.notify("⚠️ " + p.Message)
}
