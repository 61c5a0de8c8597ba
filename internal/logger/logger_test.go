package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

// 全局 logger 不能并行测试
func TestSetup_JSONAndPanic(t *testing.T) {
	defer Setup(&bytes.Buffer{}, "info", "json")

	var buf bytes.Buffer
	Setup(&buf, "warn", "json")

	log.Info().Msg("hidden")
	log.Warn().Str("nick", "alice").Msg("visible")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"nick":"alice"`)

	buf.Reset()
	LogPanic("boom")
	assert.Contains(t, buf.String(), `"panic":"boom"`)
	assert.Contains(t, buf.String(), "stack")
}
