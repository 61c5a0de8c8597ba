package session

import (
	"unicode/utf8"

	"github.com/palemoky/sketchers/internal/apperrors"
	"github.com/palemoky/sketchers/internal/protocol"
)

// Join 加入会话；同名断线玩家会恢复总分，同一回合内还会恢复本回合得分与猜中状态
func (s *Session) Join(connID string, req protocol.JoinPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nick := s.sanitize(req.DisplayName, connID)
	if nick == "" || utf8.RuneCountInString(nick) > MaxNickLength {
		s.emit(connID, protocol.MsgJoinError, protocol.JoinErrorPayload{Error: protocol.JoinErrInvalidNick})
		return apperrors.ErrInvalidNick
	}
	if s.nickInUse(nick) {
		s.emit(connID, protocol.MsgJoinError, protocol.JoinErrorPayload{Error: protocol.JoinErrNickTaken})
		return apperrors.ErrNickTaken
	}
	if existing, ok := s.users[connID]; ok {
		s.log.Warn().Str("conn", connID).Str("nick", existing.Nick).Msg("⚠️ 重复加入，已忽略")
		return apperrors.ErrAlreadyJoined
	}

	u := &User{
		ConnID:  connID,
		Nick:    nick,
		Color:   s.sanitize(req.Color, nick),
		JoinSeq: s.nextSeq,
	}
	s.nextSeq++
	s.restore(u, req.Token)
	if u.token == "" {
		u.token = newToken()
	}
	s.users[connID] = u

	s.emit(connID, protocol.MsgJoined, protocol.JoinedPayload{Nick: u.Nick, Color: u.Color, Token: u.token})
	s.emit(connID, protocol.MsgDrawCanvas, s.canvas())
	s.emit(connID, protocol.MsgState, s.stateFor(u))

	s.broadcastType(protocol.MsgUserJoined, protocol.UserEventPayload{Nick: u.Nick, Color: u.Color, Tag: s.cfg.Tag})
	s.broadcastType(protocol.MsgUsers, s.sortedUsers())

	s.log.Info().Str("conn", connID).Str("nick", u.Nick).Int("seq", u.JoinSeq).Msg("✅ 玩家加入")
	return nil
}

// restore 从断线存档恢复分数，存档随即删除
func (s *Session) restore(u *User, token string) {
	saved, ok := s.disconnected[u.Nick]
	if !ok {
		return
	}
	delete(s.disconnected, u.Nick)

	if s.cfg.StrictReconnect && (token == "" || token != saved.user.token) {
		s.log.Info().Str("nick", u.Nick).Msg("🔑 重连令牌不匹配，按新玩家处理")
		return
	}

	u.TotalScore = saved.user.TotalScore
	u.token = saved.user.token
	if saved.round == s.round {
		u.GuessedCorrectly = saved.user.GuessedCorrectly
		if saved.user.ScoreThisRound != nil {
			v := *saved.user.ScoreThisRound
			u.ScoreThisRound = &v
		}
	}
	s.log.Info().Str("nick", u.Nick).Int("score", u.TotalScore).Bool("sameRound", saved.round == s.round).Msg("🔄 玩家重连恢复")
}

// stateFor 构造发给新加入玩家的状态补发
func (s *Session) stateFor(u *User) protocol.StatePayload {
	info := s.stateInfo
	info.TimePassed = s.elapsedSecs()
	if s.state != StateLobby {
		if s.state == StateDrawing {
			info.Hint = string(s.hint)
		}
		guessed := u.GuessedCorrectly
		info.GuessedCorrectly = &guessed
	}
	return info
}

func (s *Session) canvas() []protocol.Stroke {
	strokes := make([]protocol.Stroke, len(s.strokes))
	copy(strokes, s.strokes)
	return strokes
}

// Disconnect 连接断开：玩家存档后移出名单
func (s *Session) Disconnect(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[connID]; !ok {
		// 未加入就断开是常态
		s.log.Debug().Str("conn", connID).Msg("未加入的连接断开")
		return apperrors.ErrUnknownConnection
	}
	s.disconnect(connID)
	return nil
}

// Leave 主动离开，额外向该连接确认
func (s *Session) Leave(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(connID, "leave"); !ok {
		return apperrors.ErrUnknownConnection
	}
	s.disconnect(connID)
	s.emit(connID, protocol.MsgYouLeft, nil)
	return nil
}

func (s *Session) disconnect(connID string) {
	u := s.users[connID]
	saved := *u
	saved.IsDrawing = false
	s.disconnected[u.Nick] = savedUser{user: saved, round: s.round}
	delete(s.users, connID)

	s.log.Info().Str("conn", connID).Str("nick", u.Nick).Int("round", s.round).Msg("❌ 玩家离开")

	if len(s.users) == 0 {
		s.enterLobby()
		return
	}

	s.broadcastType(protocol.MsgUserLeft, protocol.UserEventPayload{Nick: u.Nick, Color: u.Color})
	s.broadcastType(protocol.MsgUsers, s.sortedUsers())

	// 间隔期间下一位画手离开，补发给新玩家的状态要换人
	if s.state == StateIntermission && s.stateInfo.NextPlayer != nil && s.stateInfo.NextPlayer.Nick == u.Nick {
		if next := s.nextDrawer(s.drawerSeq); next != nil {
			s.stateInfo.NextPlayer = &protocol.UserRef{Nick: next.Nick, Color: next.Color}
		}
	}

	if connID == s.drawerID {
		s.endRound(false, false)
		return
	}
	s.checkEndOfRound()
}
