package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// handleKey 处理快捷键，返回 true 表示已处理，输入框不再接收该按键
func (m *Model) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.conn.Close()
		return true, tea.Quit

	case tea.KeyEnter:
		return true, m.submit()

	case tea.KeyCtrlR:
		if m.phase != PhasePlaying {
			return true, nil
		}
		// 大厅中开始新回合，作画中的画手则为跳过
		if m.state == "intermission" || (m.state == "drawing" && !m.isDrawer()) {
			return true, m.notify("⚠️ 现在不能开始回合")
		}
		return true, m.sendOrNotify(m.conn.ReadyToDraw())

	case tea.KeyCtrlX:
		if !m.isDrawer() {
			return true, nil
		}
		return true, m.sendOrNotify(m.conn.ClearCanvas())

	case tea.KeyCtrlL:
		if m.phase != PhasePlaying {
			return true, nil
		}
		return true, m.sendOrNotify(m.conn.Leave())

	case tea.KeyCtrlB:
		if m.phase != PhasePlaying {
			return true, nil
		}
		return true, m.sendOrNotify(m.conn.GetLeaderboard(leaderboardLimit))
	}
	return false, nil
}

// submit 回车：命名阶段提交昵称，游戏中发送聊天或猜测
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}

	switch m.phase {
	case PhaseNaming:
		m.nick = text
		m.input.Reset()
		return m.sendJoin()
	case PhasePlaying:
		m.input.Reset()
		return m.sendOrNotify(m.conn.Chat(text))
	default:
		return nil
	}
}

func (m *Model) sendOrNotify(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	return m.notify(fmt.Sprintf("⚠️ 发送失败: %v", err))
}
