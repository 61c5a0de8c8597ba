//go:build !ci

package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog/log"
)

const sampleRate = beep.SampleRate(44100)

// Player 预加载提示音并按名称播放
type Player struct {
	dir string

	mu      sync.RWMutex
	buffers map[Cue]*beep.Buffer
	enabled bool
}

// NewPlayer 从 dir 加载提示音，dir 为空时使用 assets/sounds
func NewPlayer(dir string) *Player {
	if dir == "" {
		dir = "assets/sounds"
	}
	return &Player{dir: dir, buffers: make(map[Cue]*beep.Buffer)}
}

// Init 初始化扬声器并加载音频文件，目录不存在时静默
func (p *Player) Init() error {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	files, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read sound directory: %w", err)
	}

	loaded := make(map[Cue]*beep.Buffer)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		buffer, err := decodeFile(filepath.Join(p.dir, file.Name()))
		if err != nil {
			log.Debug().Err(err).Str("file", file.Name()).Msg("跳过音频文件")
			continue
		}
		if buffer != nil {
			loaded[Cue(strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())))] = buffer
		}
	}

	p.mu.Lock()
	p.buffers = loaded
	p.enabled = true
	p.mu.Unlock()

	log.Debug().Int("count", len(loaded)).Str("dir", p.dir).Msg("🔊 提示音已加载")
	return nil
}

// decodeFile 解码为 44.1kHz 立体声缓冲；不支持的扩展名返回 nil
func decodeFile(path string) (*beep.Buffer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".mp3" && ext != ".wav" {
		return nil, nil
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var streamer beep.StreamSeekCloser
	var format beep.Format
	if ext == ".mp3" {
		streamer, format, err = mp3.Decode(f)
	} else {
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = streamer.Close() }()

	var source beep.Streamer = streamer
	if format.SampleRate != sampleRate {
		source = beep.Resample(4, format.SampleRate, sampleRate, streamer)
	}

	buffer := beep.NewBuffer(beep.Format{SampleRate: sampleRate, NumChannels: 2, Precision: 4})
	buffer.Append(source)
	return buffer, nil
}

// Play 播放提示音，未加载时不做任何事
func (p *Player) Play(cue Cue) {
	p.mu.RLock()
	buffer, ok := p.buffers[cue]
	enabled := p.enabled
	p.mu.RUnlock()

	if !enabled || !ok {
		return
	}
	speaker.Play(buffer.Streamer(0, buffer.Len()))
}

// Close 停止播放
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled {
		speaker.Clear()
	}
	p.enabled = false
}
