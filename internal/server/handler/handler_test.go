package handler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/sketchers/internal/apperrors"
	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
	"github.com/palemoky/sketchers/internal/testutil"
)

func newTestHandler(t *testing.T) (*Handler, *testutil.MockServer, *testutil.MockSession, *testutil.MockChatLimiter, *testutil.MockLeaderboard) {
	t.Helper()
	srv := new(testutil.MockServer)
	sess := new(testutil.MockSession)
	limiter := new(testutil.MockChatLimiter)
	board := new(testutil.MockLeaderboard)

	h := NewHandler(HandlerDeps{
		Server:      srv,
		Session:     sess,
		ChatLimiter: limiter,
		Leaderboard: board,
		Tag:         "main",
	})
	return h, srv, sess, limiter, board
}

func TestHandler_Join(t *testing.T) {
	t.Parallel()

	h, srv, sess, _, _ := newTestHandler(t)
	client := testutil.NewSimpleClient("c1")
	req := protocol.JoinPayload{DisplayName: "Alice", Color: "#fff", Token: "tok"}

	srv.On("IsMaintenanceMode").Return(false)
	sess.On("Join", "c1", req).Return(nil)

	h.Handle(client, codec.MustNewMessage(protocol.MsgJoin, req))

	sess.AssertExpectations(t)
	assert.Empty(t, client.Messages())
}

func TestHandler_JoinDuringMaintenance(t *testing.T) {
	t.Parallel()

	h, srv, sess, _, _ := newTestHandler(t)
	client := testutil.NewSimpleClient("c1")
	srv.On("IsMaintenanceMode").Return(true)

	h.Handle(client, codec.MustNewMessage(protocol.MsgJoin, protocol.JoinPayload{DisplayName: "Alice"}))

	sess.AssertNotCalled(t, "Join", mock.Anything, mock.Anything)
	p := testutil.Payload[protocol.ErrorPayload](t, client.Last())
	assert.Equal(t, protocol.ErrCodeServerMaintenance, p.Code)
}

func TestHandler_JoinMalformedPayload(t *testing.T) {
	t.Parallel()

	h, _, sess, _, _ := newTestHandler(t)
	client := testutil.NewSimpleClient("c1")

	h.Handle(client, &protocol.Message{Type: protocol.MsgJoin, Payload: []byte(`{"displayName":`)})

	sess.AssertNotCalled(t, "Join", mock.Anything, mock.Anything)
	p := testutil.Payload[protocol.ErrorPayload](t, client.Last())
	assert.Equal(t, protocol.ErrCodeInvalidMsg, p.Code)
}

func TestHandler_ChatForwardsToGuess(t *testing.T) {
	t.Parallel()

	h, _, sess, limiter, _ := newTestHandler(t)
	client := testutil.NewSimpleClient("c1")

	limiter.On("AllowChat", "c1").Return(true, "")
	sess.On("Guess", "c1", "apple").Return(nil)

	h.Handle(client, codec.MustNewMessage(protocol.MsgChat, protocol.ChatPayload{Text: "apple"}))

	limiter.AssertExpectations(t)
	sess.AssertExpectations(t)
}

func TestHandler_ChatRateLimited(t *testing.T) {
	t.Parallel()

	h, _, sess, limiter, _ := newTestHandler(t)
	client := new(testutil.MockClient)
	client.On("GetID").Return("c1")
	client.On("SendMessage", mock.MatchedBy(func(msg *protocol.Message) bool {
		p, err := codec.ParsePayload[protocol.ErrorPayload](msg)
		return err == nil && p.Code == protocol.ErrCodeRateLimit && p.Message == "Too fast"
	})).Once()

	limiter.On("AllowChat", "c1").Return(false, "Too fast")

	h.Handle(client, codec.MustNewMessage(protocol.MsgChat, protocol.ChatPayload{Text: "spam"}))

	sess.AssertNotCalled(t, "Guess", mock.Anything, mock.Anything)
	client.AssertExpectations(t)
	client.AssertNotCalled(t, "Close")
}

func TestHandler_SessionRejectionsAreSilent(t *testing.T) {
	t.Parallel()

	h, _, sess, _, _ := newTestHandler(t)
	client := testutil.NewSimpleClient("c1")
	stroke := protocol.Stroke{To: protocol.Point{X: 1, Y: 2}, Color: "#000", Width: 2}

	sess.On("Draw", "c1", stroke).Return(apperrors.ErrNotDrawer)
	sess.On("ClearCanvas", "c1").Return(apperrors.ErrNotDrawer)
	sess.On("ReadyToDraw", "c1").Return(apperrors.ErrWrongState)
	sess.On("Leave", "c1").Return(errors.New("boom"))

	h.Handle(client, codec.MustNewMessage(protocol.MsgDraw, stroke))
	h.Handle(client, codec.MustNewMessage(protocol.MsgClearCanvas, nil))
	h.Handle(client, codec.MustNewMessage(protocol.MsgReadyToDraw, nil))
	h.Handle(client, codec.MustNewMessage(protocol.MsgLeave, nil))

	sess.AssertExpectations(t)
	assert.Empty(t, client.Messages())
}

func TestHandler_UnknownType(t *testing.T) {
	t.Parallel()

	h, _, _, _, _ := newTestHandler(t)
	client := testutil.NewSimpleClient("c1")

	h.Handle(client, &protocol.Message{Type: "selectWord"})

	p := testutil.Payload[protocol.ErrorPayload](t, client.Last())
	assert.Equal(t, protocol.ErrCodeInvalidMsg, p.Code)
}

func TestHandler_Ping(t *testing.T) {
	t.Parallel()

	h, _, _, _, _ := newTestHandler(t)
	client := testutil.NewSimpleClient("c1")

	h.Handle(client, codec.MustNewMessage(protocol.MsgPing, protocol.PingPayload{Timestamp: 12345}))

	msg := client.Last()
	require.NotNil(t, msg)
	assert.Equal(t, protocol.MsgPong, msg.Type)
	p := testutil.Payload[protocol.PongPayload](t, msg)
	assert.Equal(t, int64(12345), p.ClientTimestamp)
	assert.Positive(t, p.ServerTimestamp)
}

func TestHandler_GetLeaderboard(t *testing.T) {
	t.Parallel()

	h, _, _, _, board := newTestHandler(t)
	client := testutil.NewSimpleClient("c1")
	entries := []protocol.LeaderboardEntry{{Rank: 1, Nick: "G", Score: 130}}

	board.On("Top", mock.Anything, "main", maxLeaderboardLimit).Return(entries, nil)

	h.Handle(client, codec.MustNewMessage(protocol.MsgGetLeaderboard, protocol.GetLeaderboardPayload{Limit: 500}))

	board.AssertExpectations(t)
	p := testutil.Payload[protocol.LeaderboardPayload](t, client.Last())
	assert.Equal(t, "main", p.Tag)
	assert.Equal(t, entries, p.Entries)
}

func TestHandler_GetLeaderboardDefaultsAndErrors(t *testing.T) {
	t.Parallel()

	h, _, _, _, board := newTestHandler(t)
	client := testutil.NewSimpleClient("c1")

	board.On("Top", mock.Anything, "main", defaultLeaderboardLimit).Return(nil, errors.New("redis down"))

	h.Handle(client, codec.MustNewMessage(protocol.MsgGetLeaderboard, nil))

	p := testutil.Payload[protocol.ErrorPayload](t, client.Last())
	assert.Equal(t, protocol.ErrCodeStorage, p.Code)
}

func TestHandler_GetLeaderboardDisabled(t *testing.T) {
	t.Parallel()

	h := NewHandler(HandlerDeps{Session: new(testutil.MockSession), Tag: "main"})
	client := testutil.NewSimpleClient("c1")

	h.Handle(client, codec.MustNewMessage(protocol.MsgGetLeaderboard, nil))

	p := testutil.Payload[protocol.ErrorPayload](t, client.Last())
	assert.Equal(t, protocol.ErrCodeStorage, p.Code)
}
