package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/sketchers/internal/logger"
	"github.com/palemoky/sketchers/internal/sound"
	"github.com/palemoky/sketchers/internal/transport"
	"github.com/palemoky/sketchers/internal/ui"
)

func main() {
	serverAddr := flag.String("server", "localhost:42420", "服务器地址")
	nick := flag.String("nick", "", "昵称，留空则启动后输入")
	color := flag.String("color", "#4A90D9", "昵称颜色")
	binary := flag.Bool("binary", false, "使用二进制帧通信")
	soundDir := flag.String("sounds", "assets/sounds", "提示音目录")
	flag.Parse()

	// 终端界面占用 stdout，日志写入文件
	if err := logger.InitFile(".sketchers"); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
	}
	defer logger.Close()

	conn := transport.NewClient(fmt.Sprintf("ws://%s/ws", *serverAddr))
	conn.Binary = *binary

	player := sound.NewPlayer(*soundDir)
	defer player.Close()

	model := ui.NewModel(conn, player, *nick, *color)
	conn.OnReconnecting = model.NotifyReconnecting
	conn.OnReconnect = model.NotifyReconnected

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "启动客户端时出错: %v\n", err)
		os.Exit(1)
	}
}
