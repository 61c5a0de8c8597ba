package session

import (
	"html"

	"github.com/palemoky/sketchers/internal/apperrors"
	"github.com/palemoky/sketchers/internal/protocol"
)

// Draw 画手追加一条线段并广播，其他人的线段被忽略
func (s *Session) Draw(connID string, stroke protocol.Stroke) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.lookup(connID, "draw")
	if !ok {
		return apperrors.ErrUnknownConnection
	}
	if s.state != StateDrawing || connID != s.drawerID {
		s.log.Debug().Str("nick", u.Nick).Msg("非画手尝试作画，已忽略")
		return apperrors.ErrNotDrawer
	}
	if len(s.strokes) >= s.cfg.MaxStrokes {
		s.log.Warn().Str("nick", u.Nick).Int("strokes", len(s.strokes)).Msg("画布历史已满，丢弃线段")
		return apperrors.ErrInvalidMessage
	}

	stroke.Color = html.EscapeString(stroke.Color)
	s.strokes = append(s.strokes, stroke)
	s.broadcastType(protocol.MsgDraw, stroke)
	return nil
}

// ClearCanvas 画手清空画布
func (s *Session) ClearCanvas(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.lookup(connID, "clearCanvas")
	if !ok {
		return apperrors.ErrUnknownConnection
	}
	if s.state != StateDrawing || connID != s.drawerID {
		s.log.Debug().Str("nick", u.Nick).Msg("非画手尝试清空画布，已忽略")
		return apperrors.ErrNotDrawer
	}

	s.strokes = nil
	s.broadcastType(protocol.MsgClearCanvas, nil)
	return nil
}

// StrokeCount 画布历史长度
func (s *Session) StrokeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.strokes)
}
