package session

import (
	"time"

	"github.com/palemoky/sketchers/internal/apperrors"
	"github.com/palemoky/sketchers/internal/game/dictionary"
	"github.com/palemoky/sketchers/internal/protocol"
)

// ReadyToDraw 大厅中开始新回合；画手在作画中发出则视为跳过
func (s *Session) ReadyToDraw(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.lookup(connID, "readyToDraw")
	if !ok {
		return apperrors.ErrUnknownConnection
	}

	switch {
	case s.state == StateLobby:
		return s.startRound(u)
	case s.state == StateDrawing && connID == s.drawerID:
		s.endRound(true, false)
		return nil
	default:
		s.log.Debug().Str("nick", u.Nick).Str("state", s.state.String()).Msg("readyToDraw 在当前状态无效")
		return apperrors.ErrWrongState
	}
}

func (s *Session) setState(state State, info protocol.StatePayload) {
	s.state = state
	s.stateEnteredAt = s.now()
	info.State = state.String()
	info.TimePassed = 0
	s.stateInfo = info
	s.broadcastType(protocol.MsgState, info)
}

// enterLobby 回到大厅，取消所有定时器
func (s *Session) enterLobby() {
	s.cancelTimers()
	s.drawerID = ""
	s.word = dictionary.Entry{}
	s.masked = nil
	for _, u := range s.users {
		u.IsDrawing = false
	}
	s.setState(StateLobby, protocol.StatePayload{})
}

// startRound 以 drawer 为画手开始新回合
func (s *Session) startRound(drawer *User) error {
	if len(s.words) == 0 {
		s.log.Error().Msg("❗ 词库为空，无法开始回合")
		s.enterLobby()
		return apperrors.ErrEmptyDictionary
	}

	s.cancelTimers()
	s.round++
	s.drawerID = drawer.ConnID
	s.drawerSeq = drawer.JoinSeq
	s.drawerRef = drawer.ref()

	s.strokes = nil
	s.broadcastType(protocol.MsgClearCanvas, nil)

	s.word = s.words[(s.round-1)%len(s.words)]
	s.buildHint(s.word.Word)

	for _, u := range s.users {
		u.GuessedCorrectly = false
		u.ScoreThisRound = nil
		u.IsDrawing = u.ConnID == drawer.ConnID
	}

	s.schedule(s.cfg.RoundDuration, func() { s.endRound(false, false) })
	if s.hintsToReveal > 0 {
		s.scheduleHint(s.cfg.RoundDuration / time.Duration(s.hintsToReveal+1))
	}

	s.broadcastType(protocol.MsgStartRound, protocol.StartRoundPayload{Round: s.round, Player: s.drawerRef})
	s.setState(StateDrawing, protocol.StatePayload{
		Nick:  drawer.Nick,
		Color: drawer.Color,
		Hint:  string(s.hint),
		Round: s.round,
		Time:  int(s.cfg.RoundDuration / time.Second),
	})
	s.emit(drawer.ConnID, protocol.MsgYouDraw, protocol.YouDrawPayload{Word: s.word.Word, Difficulty: s.word.Difficulty})
	s.broadcastType(protocol.MsgUsers, s.sortedUsers())

	s.log.Info().Int("round", s.round).Str("drawer", drawer.Nick).Int("hints", s.hintsToReveal).Msg("🎨 回合开始")
	return nil
}

// endRound 结束当前回合，进入间隔或回到大厅
func (s *Session) endRound(isPass, allGuessed bool) {
	if s.state != StateDrawing {
		return
	}
	s.cancelTimers()

	word := s.word
	lastRef := s.drawerRef
	lastSeq := s.drawerSeq

	s.drawerID = ""
	s.word = dictionary.Entry{}
	s.masked = nil
	for _, u := range s.users {
		u.IsDrawing = false
	}

	s.broadcastType(protocol.MsgEndRound, protocol.EndRoundPayload{
		Word:       word.Word,
		IsPass:     isPass,
		AllGuessed: allGuessed,
		Player:     &lastRef,
	})
	s.recordRound(s.roundResult(word.Word, lastRef.Nick, isPass, allGuessed))

	s.log.Info().Int("round", s.round).Str("word", word.Word).Bool("pass", isPass).Bool("allGuessed", allGuessed).Msg("🏁 回合结束")

	next := s.nextDrawer(lastSeq)
	if next == nil || !s.cfg.AutoSelectNextPlayer {
		s.enterLobby()
		s.broadcastType(protocol.MsgUsers, s.sortedUsers())
		return
	}

	s.setState(StateIntermission, protocol.StatePayload{
		Time:       int(s.cfg.IntermissionDuration / time.Second),
		NextPlayer: &protocol.UserRef{Nick: next.Nick, Color: next.Color},
		Word:       word.Word,
	})
	s.broadcastType(protocol.MsgUsers, s.sortedUsers())

	s.schedule(s.cfg.IntermissionDuration, func() {
		// 间隔期间可能已被其他事件改变状态
		if s.state != StateIntermission {
			return
		}
		n := s.nextDrawer(lastSeq)
		if n == nil {
			s.enterLobby()
			return
		}
		_ = s.startRound(n)
	})
}

// nextDrawer 加入序号大于 afterSeq 的最小者，没有则回绕到最小序号
func (s *Session) nextDrawer(afterSeq int) *User {
	var next, first *User
	for _, u := range s.users {
		if first == nil || u.JoinSeq < first.JoinSeq {
			first = u
		}
		if u.JoinSeq > afterSeq && (next == nil || u.JoinSeq < next.JoinSeq) {
			next = u
		}
	}
	if next != nil {
		return next
	}
	return first
}

func (s *Session) roundResult(word, drawer string, isPass, allGuessed bool) RoundResult {
	points := make(map[string]int)
	for _, u := range s.users {
		if u.ScoreThisRound != nil {
			points[u.Nick] = *u.ScoreThisRound
		}
	}
	// 本回合中途离开的玩家也计入
	for nick, saved := range s.disconnected {
		if saved.round == s.round && saved.user.ScoreThisRound != nil {
			if _, ok := points[nick]; !ok {
				points[nick] = *saved.user.ScoreThisRound
			}
		}
	}
	return RoundResult{
		Tag:        s.cfg.Tag,
		Round:      s.round,
		Word:       word,
		Drawer:     drawer,
		IsPass:     isPass,
		AllGuessed: allGuessed,
		Points:     points,
		EndedAt:    s.now(),
	}
}
