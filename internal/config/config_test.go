package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Parallel()

	content := `
server:
  host: "127.0.0.1"
  port: 8080
  max_connections: 500
  static_dir: "client"
  wire_format: "binary"

redis:
  enabled: true
  addr: "redis:6379"
  password: "secret"
  db: 1

game:
  round_duration: 90
  intermission_duration: 5
  correct_guess_ends_turn: true
  score_by_remaining_time: false
  auto_select_next_player: false
  max_hints: 3
  max_hint_fraction: 0.5
  strict_reconnect: true
  tag: "party"

security:
  allowed_origins:
    - "http://localhost:3000"
    - "https://example.com"
  rate_limit:
    max_per_second: 20
    max_per_minute: 120
    ban_duration: 120

log:
  level: "debug"
  format: "json"
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, 500, cfg.Server.MaxConnections)
	assert.Equal(t, "client", cfg.Server.StaticDir)
	assert.Equal(t, "binary", cfg.Server.WireFormat)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 1, cfg.Redis.DB)

	assert.Equal(t, 90*time.Second, cfg.Game.RoundDurationTime())
	assert.Equal(t, 5*time.Second, cfg.Game.IntermissionDurationTime())
	assert.True(t, cfg.Game.CorrectGuessEndsTurn)
	assert.False(t, cfg.Game.ScoreByRemainingTime)
	assert.False(t, cfg.Game.AutoSelectNextPlayer)
	assert.Equal(t, 3, cfg.Game.MaxHints)
	assert.InDelta(t, 0.5, cfg.Game.MaxHintFraction, 1e-9)
	assert.True(t, cfg.Game.StrictReconnect)
	assert.Equal(t, "party", cfg.Game.Tag)

	assert.Len(t, cfg.Security.AllowedOrigins, 2)
	assert.Equal(t, 120*time.Second, cfg.Security.RateLimit.BanDurationTime())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "game:\n  round_duration: 60\n"))
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, 60, cfg.Game.RoundDuration)
	assert.Equal(t, d.Game.IntermissionDuration, cfg.Game.IntermissionDuration)
	assert.True(t, cfg.Game.ScoreByRemainingTime)
	assert.True(t, cfg.Game.AutoSelectNextPlayer)
	assert.Equal(t, d.Game.MaxHints, cfg.Game.MaxHints)
	assert.Equal(t, d.Server.Port, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Server.WireFormat)
}

func TestLoad_NormalizesInvalidValues(t *testing.T) {
	t.Parallel()

	content := `
server:
  port: -1
  wire_format: "xml"
game:
  round_duration: 0
  max_hints: -2
  max_hint_fraction: 3
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.Server.Port, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Server.WireFormat)
	assert.Equal(t, d.Game.RoundDuration, cfg.Game.RoundDuration)
	assert.Equal(t, 0, cfg.Game.MaxHints)
	assert.InDelta(t, d.Game.MaxHintFraction, cfg.Game.MaxHintFraction, 1e-9)
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	cfg, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, 42420, cfg.Server.Port)
	assert.Equal(t, 120*time.Second, cfg.Game.RoundDurationTime())
	assert.Equal(t, 7*time.Second, cfg.Game.IntermissionDurationTime())
	assert.False(t, cfg.Game.CorrectGuessEndsTurn)
	assert.True(t, cfg.Game.ScoreByRemainingTime)
	assert.True(t, cfg.Game.AutoSelectNextPlayer)
	assert.Equal(t, 4, cfg.Game.MaxHints)
	assert.InDelta(t, 0.40, cfg.Game.MaxHintFraction, 1e-9)
	assert.False(t, cfg.Redis.Enabled)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("REDIS_ADDR", "cache:6380")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)

	t.Setenv("PORT", "not-a-port")
	cfg = Default()
	cfg.ApplyEnv()
	assert.Equal(t, 42420, cfg.Server.Port)
}
