package session

import (
	"math"
	"strings"
	"time"

	"github.com/palemoky/sketchers/internal/protocol"
)

// buildHint 生成初始提示并计算本回合的揭示次数
func (s *Session) buildHint(word string) {
	s.wordRunes = []rune(word)
	s.hint = make([]rune, len(s.wordRunes))
	s.masked = s.masked[:0]
	for i, r := range s.wordRunes {
		if strings.ContainsRune(preRevealed, r) {
			s.hint[i] = r
			continue
		}
		s.hint[i] = hintPlaceholder
		s.masked = append(s.masked, i)
	}

	s.hintsRevealed = 0
	s.hintsToReveal = min(s.cfg.MaxHints, int(math.Floor(float64(len(s.wordRunes))*s.cfg.MaxHintFraction)))
}

// scheduleHint 每个间隔揭示一个字符，直到达到本回合的揭示次数
func (s *Session) scheduleHint(interval time.Duration) {
	s.schedule(interval, func() {
		if !s.revealHint() {
			return
		}
		if s.hintsRevealed < s.hintsToReveal && len(s.masked) > 0 {
			s.scheduleHint(interval)
		}
	})
}

// revealHint 随机揭示一个仍被遮住的字符
func (s *Session) revealHint() bool {
	if s.state != StateDrawing || len(s.masked) == 0 {
		return false
	}

	i := s.intn(len(s.masked))
	pos := s.masked[i]
	s.masked[i] = s.masked[len(s.masked)-1]
	s.masked = s.masked[:len(s.masked)-1]

	s.hint[pos] = s.wordRunes[pos]
	s.hintsRevealed++
	s.broadcastType(protocol.MsgHint, protocol.HintPayload{Hint: string(s.hint)})
	return true
}
