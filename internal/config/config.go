package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
	StaticDir      string `yaml:"static_dir"`  // 为空则不提供静态文件
	WireFormat     string `yaml:"wire_format"` // json | binary，客户端未发过帧时使用
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Addr        string `yaml:"addr"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	HistorySize int    `yaml:"history_size"` // 保留的回合记录条数
}

// GameConfig 会话配置
type GameConfig struct {
	RoundDuration        int     `yaml:"round_duration"`        // 回合时长（秒）
	IntermissionDuration int     `yaml:"intermission_duration"` // 回合间隔（秒）
	CorrectGuessEndsTurn bool    `yaml:"correct_guess_ends_turn"`
	ScoreByRemainingTime bool    `yaml:"score_by_remaining_time"`
	AutoSelectNextPlayer bool    `yaml:"auto_select_next_player"`
	MaxHints             int     `yaml:"max_hints"`
	MaxHintFraction      float64 `yaml:"max_hint_fraction"`
	FlatScore            int     `yaml:"flat_score"`       // 关闭按时计分时每人得分
	StrictReconnect      bool    `yaml:"strict_reconnect"` // 重连需要令牌
	MaxStrokes           int     `yaml:"max_strokes"`      // 画布历史上限
	Dictionary           string  `yaml:"dictionary"`
	ShuffleDictionary    bool    `yaml:"shuffle_dictionary"`
	Tag                  string  `yaml:"tag"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string          `yaml:"allowed_origins"`
	BlockedIPs     []string          `yaml:"blocked_ips"`
	RateLimit      RateLimitConfig   `yaml:"rate_limit"`
	MessageLimit   BucketLimitConfig `yaml:"message_limit"`
	ChatLimit      BucketLimitConfig `yaml:"chat_limit"`
}

// RateLimitConfig 连接速率限制
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 封禁时长（秒）
}

// BucketLimitConfig 令牌桶限制
type BucketLimitConfig struct {
	MaxPerSecond float64 `yaml:"max_per_second"`
	Burst        int     `yaml:"burst"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

// RoundDurationTime 返回回合时长
func (c *GameConfig) RoundDurationTime() time.Duration {
	return time.Duration(c.RoundDuration) * time.Second
}

// IntermissionDurationTime 返回回合间隔时长
func (c *GameConfig) IntermissionDurationTime() time.Duration {
	return time.Duration(c.IntermissionDuration) * time.Second
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// Addr 返回监听地址
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Load 加载配置文件，未出现的字段保留默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	return cfg, nil
}

// ApplyEnv 用环境变量覆盖部分配置
func (c *Config) ApplyEnv() {
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil && port > 0 {
		c.Server.Port = port
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
}

// normalize 修正非法取值
func (c *Config) normalize() {
	d := Default()

	if c.Server.Port <= 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.MaxConnections <= 0 {
		c.Server.MaxConnections = d.Server.MaxConnections
	}
	if c.Server.WireFormat != "binary" {
		c.Server.WireFormat = "json"
	}
	if c.Redis.HistorySize <= 0 {
		c.Redis.HistorySize = d.Redis.HistorySize
	}
	if c.Game.RoundDuration <= 0 {
		c.Game.RoundDuration = d.Game.RoundDuration
	}
	if c.Game.IntermissionDuration <= 0 {
		c.Game.IntermissionDuration = d.Game.IntermissionDuration
	}
	if c.Game.MaxHints < 0 {
		c.Game.MaxHints = 0
	}
	if c.Game.MaxHintFraction < 0 || c.Game.MaxHintFraction > 1 {
		c.Game.MaxHintFraction = d.Game.MaxHintFraction
	}
	if c.Game.FlatScore <= 0 {
		c.Game.FlatScore = d.Game.FlatScore
	}
	if c.Game.MaxStrokes <= 0 {
		c.Game.MaxStrokes = d.Game.MaxStrokes
	}
	if c.Security.MessageLimit.MaxPerSecond <= 0 {
		c.Security.MessageLimit = d.Security.MessageLimit
	}
	if c.Security.ChatLimit.MaxPerSecond <= 0 {
		c.Security.ChatLimit = d.Security.ChatLimit
	}
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           42420,
			MaxConnections: 200,
			WireFormat:     "json",
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			HistorySize: 100,
		},
		Game: GameConfig{
			RoundDuration:        120,
			IntermissionDuration: 7,
			CorrectGuessEndsTurn: false,
			ScoreByRemainingTime: true,
			AutoSelectNextPlayer: true,
			MaxHints:             4,
			MaxHintFraction:      0.40,
			FlatScore:            10,
			MaxStrokes:           50000,
			Dictionary:           "dictionaries/en.txt",
			ShuffleDictionary:    true,
			Tag:                  "main",
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				MaxPerSecond: 10,
				MaxPerMinute: 60,
				BanDuration:  60,
			},
			MessageLimit: BucketLimitConfig{MaxPerSecond: 60, Burst: 120},
			ChatLimit:    BucketLimitConfig{MaxPerSecond: 2, Burst: 5},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
