package ui

import (
	"fmt"
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	chatVisibleLines = 12
	sideWidth        = 28
)

// View 渲染界面
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch m.phase {
	case PhaseConnecting:
		content = m.connectingView()
	case PhaseNaming, PhaseJoining:
		content = m.namingView()
	case PhaseLeft:
		content = "👋 已离开游戏"
	default:
		content = m.gameView()
	}
	return docStyle.Render(content)
}

func (m *Model) connectingView() string {
	text := "🔌 正在连接服务器..."
	if m.err != "" {
		text = errorStyle.Render(m.err)
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, text)
}

func (m *Model) namingView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle("🎨 你画我猜"))
	sb.WriteString("\n\n")
	if m.phase == PhaseJoining {
		sb.WriteString(fmt.Sprintf("正在以 %s 加入...", m.nick))
	} else {
		sb.WriteString(m.input.View())
	}
	if m.notification != "" {
		sb.WriteString("\n\n" + m.notification)
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}

func (m *Model) gameView() string {
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.statusLine(),
		"",
		m.wordLine(),
		"",
		m.chatBox(),
		m.input.View(),
		m.footer(),
	)
	side := lipgloss.JoinVertical(lipgloss.Left, m.usersBox(), m.leaderboardBox())
	return lipgloss.JoinHorizontal(lipgloss.Top, main, "  ", side)
}

// statusLine 阶段、回合、倒计时与延迟
func (m *Model) statusLine() string {
	var parts []string
	switch m.state {
	case "drawing":
		parts = append(parts, fmt.Sprintf("第 %d 回合", m.round),
			fmt.Sprintf("%s %s 作画中", drawerIcon, nickStyle(m.drawer.Color).Render(m.drawer.Nick)))
	case "intermission":
		next := "-"
		if m.nextPlayer != nil {
			next = nickStyle(m.nextPlayer.Color).Render(m.nextPlayer.Nick)
		}
		parts = append(parts, "休息中", "下一位: "+next)
	default:
		parts = append(parts, "大厅", "Ctrl+R 开始回合")
	}
	if left := m.remaining(); left > 0 {
		parts = append(parts, fmt.Sprintf("⏱ %ds", left))
	}
	if m.state == "drawing" {
		parts = append(parts, fmt.Sprintf("%d 笔", m.strokes))
	}
	parts = append(parts, dimStyle.Render(fmt.Sprintf("%dms", m.conn.Latency())))
	return titleStyle("🎨 你画我猜") + "  " + strings.Join(parts, " | ")
}

// wordLine 画手看到词语，其他人看到提示
func (m *Model) wordLine() string {
	switch {
	case m.isDrawer():
		return fmt.Sprintf("你的词: %s (%s)", wordStyle.Render(html.UnescapeString(m.word)), m.difficulty)
	case m.state == "drawing":
		hint := spaceOut(m.hint)
		if m.guessed {
			return hintStyle.Render(hint) + "  " + guessedIcon + " 已猜中"
		}
		return hintStyle.Render(hint)
	case m.word != "":
		return "答案: " + wordStyle.Render(html.UnescapeString(m.word))
	default:
		return dimStyle.Render("等待回合开始")
	}
}

// spaceOut 在提示字符之间加空格，便于数出长度
func spaceOut(hint string) string {
	runes := []rune(hint)
	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = string(r)
	}
	return strings.Join(parts, " ")
}

func (m *Model) chatBox() string {
	start := max(len(m.chat)-chatVisibleLines, 0)
	lines := m.chat[start:]
	body := strings.Join(lines, "\n")
	if body == "" {
		body = dimStyle.Render("还没有消息")
	}
	width := max(m.width-sideWidth-10, 30)
	return boxStyle.Width(width).Render(body)
}

func (m *Model) usersBox() string {
	var sb strings.Builder
	sb.WriteString("玩家\n")
	for _, u := range m.users {
		icon := waitingIcon
		switch {
		case u.IsDrawing:
			icon = drawerIcon
		case u.GuessedCorrectly:
			icon = guessedIcon
		}
		line := fmt.Sprintf("%s %s %d", icon, nickStyle(u.Color).Render(html.UnescapeString(u.Nick)), u.Score)
		if u.ScoreThisRound != nil {
			line += fmt.Sprintf(" (+%d)", *u.ScoreThisRound)
		}
		if u.Nick == m.nick {
			line += " (你)"
		}
		sb.WriteString(line + "\n")
	}
	return boxStyle.Width(sideWidth).Render(strings.TrimRight(sb.String(), "\n"))
}

func (m *Model) leaderboardBox() string {
	if len(m.leaderboard) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("🏆 排行榜\n")
	for _, e := range m.leaderboard {
		sb.WriteString(fmt.Sprintf("%2d. %s %d\n", e.Rank, e.Nick, e.Score))
	}
	return boxStyle.Width(sideWidth).Render(strings.TrimRight(sb.String(), "\n"))
}

func (m *Model) footer() string {
	if m.notification != "" {
		return m.notification
	}
	keys := "Enter 发送 | Ctrl+R 开始/跳过 | Ctrl+B 排行榜 | Ctrl+L 离开 | Ctrl+C 退出"
	if m.isDrawer() {
		keys = "Ctrl+X 清空画布 | " + keys
	}
	return dimStyle.Render(keys)
}
