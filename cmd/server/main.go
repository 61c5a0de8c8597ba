package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/sketchers/internal/config"
	"github.com/palemoky/sketchers/internal/game/dictionary"
	"github.com/palemoky/sketchers/internal/logger"
	"github.com/palemoky/sketchers/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	drainTimeout := flag.Duration("drain", 2*time.Minute, "关闭时等待当前回合结束的最长时间")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
		logger.Init(cfg.Log.Level, cfg.Log.Format)
		log.Warn().Err(err).Str("path", *configPath).Msg("加载配置文件失败，使用默认配置")
	} else {
		logger.Init(cfg.Log.Level, cfg.Log.Format)
	}
	cfg.ApplyEnv()

	words, err := dictionary.Load(cfg.Game.Dictionary, cfg.Game.ShuffleDictionary)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Game.Dictionary).Msg("加载词库失败")
	}
	if len(words) == 0 {
		log.Warn().Str("path", cfg.Game.Dictionary).Msg("⚠️ 词库为空，无法开始回合")
	}
	log.Info().Int("words", len(words)).Str("path", cfg.Game.Dictionary).Msg("📖 词库已加载")

	srv, err := server.NewServer(cfg, words)
	if err != nil {
		log.Fatal().Err(err).Msg("创建服务器失败")
	}

	// SIGINT 立即关闭；SIGTERM 等待当前回合结束
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sig := <-quit
		log.Info().Str("signal", sig.String()).Msg("正在关闭服务器...")
		if sig == syscall.SIGTERM {
			srv.GracefulShutdown(*drainTimeout)
		} else {
			srv.GracefulShutdown(0)
		}
	}()

	log.Info().Msg("🎨 你画我猜服务器启动中...")
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("服务器启动失败")
	}
	<-done
}
