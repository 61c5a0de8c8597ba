package session

import (
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/palemoky/sketchers/internal/apperrors"
	"github.com/palemoky/sketchers/internal/protocol"
)

// Guess 处理聊天文本：命中当前词的文本永远不会作为聊天广播
func (s *Session) Guess(connID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.lookup(connID, "message")
	if !ok {
		return apperrors.ErrUnknownConnection
	}

	clean := s.sanitize(text, u.Nick)
	if n := utf8.RuneCountInString(clean); n == 0 || n > MaxMessageLength {
		s.log.Debug().Str("nick", u.Nick).Int("len", n).Msg("丢弃空或过长的消息")
		return apperrors.ErrInvalidMessage
	}

	chat := protocol.ChatPayload{Text: clean, Nick: u.Nick, Color: u.Color}
	if !s.matchesWord(clean) {
		s.broadcastType(protocol.MsgChat, chat)
		return nil
	}

	drawer, hasDrawer := s.users[s.drawerID]
	if s.state != StateDrawing || !hasDrawer || u == drawer || u.GuessedCorrectly {
		// 命中但不计分，只回显给本人
		s.log.Debug().Str("nick", u.Nick).Msg("命中词语但不计分")
		s.emit(connID, protocol.MsgChat, chat)
		return nil
	}

	s.awardGuess(u, drawer)
	return nil
}

// matchesWord 转义后的文本与转义后的当前词忽略大小写比较
func (s *Session) matchesWord(clean string) bool {
	if s.word.Word == "" {
		return false
	}
	return strings.EqualFold(clean, html.EscapeString(strings.TrimSpace(s.word.Word)))
}

// awardGuess 计分：按剩余秒数或固定分值
func (s *Session) awardGuess(guesser, drawer *User) {
	elapsed := s.elapsedSecs()
	remaining := max(int(s.cfg.RoundDuration/time.Second)-elapsed, 0)

	var guesserPoints, drawerPoints int
	if s.cfg.ScoreByRemainingTime {
		guesserPoints = remaining
		if others := len(s.users) - 1; others > 0 {
			drawerPoints = remaining / others
		}
	} else {
		guesserPoints = s.cfg.FlatScore
		drawerPoints = s.cfg.FlatScore
	}

	guesser.GuessedCorrectly = true
	guesser.addScore(guesserPoints)
	drawer.addScore(drawerPoints)

	s.broadcastType(protocol.MsgWordGuessed, protocol.WordGuessedPayload{
		Nick:           guesser.Nick,
		Color:          guesser.Color,
		TimePassedSecs: elapsed,
		Points: []protocol.PointsAward{
			{Nick: guesser.Nick, Points: guesserPoints},
			{Nick: drawer.Nick, Points: drawerPoints},
		},
	})
	s.emit(guesser.ConnID, protocol.MsgYouGuessedIt, nil)
	s.broadcastType(protocol.MsgUsers, s.sortedUsers())

	s.log.Info().Str("nick", guesser.Nick).Int("elapsed", elapsed).Int("points", guesserPoints).Int("drawerPoints", drawerPoints).Msg("🎉 猜中")
	s.checkEndOfRound()
}

// checkEndOfRound 所有非画手都猜中，或开启 CorrectGuessEndsTurn 后有人猜中时结束回合
func (s *Session) checkEndOfRound() {
	if s.state != StateDrawing || s.drawerID == "" {
		return
	}

	guessed := 0
	for _, u := range s.users {
		if u.GuessedCorrectly {
			guessed++
		}
	}
	allGuessed := guessed == len(s.users)-1
	if allGuessed || (guessed > 0 && s.cfg.CorrectGuessEndsTurn) {
		s.endRound(false, allGuessed)
	}
}
