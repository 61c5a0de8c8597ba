package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/sketchers/internal/protocol"
	"github.com/palemoky/sketchers/internal/protocol/codec"
)

var upgrader = websocket.Upgrader{}

// fakeServer 每个新连接调用一次 serve，n 为连接序号（从 1 开始）
func fakeServer(t *testing.T, serve func(n int, conn *websocket.Conn)) string {
	t.Helper()

	var count atomic.Int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(int(count.Add(1)), conn)
	}))
	t.Cleanup(s.Close)
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func echo(_ int, conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.WriteMessage(mt, data)
	}
}

// readMsg 服务端读取一条文本消息，失败时返回空消息
func readMsg(conn *websocket.Conn) *protocol.Message {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return &protocol.Message{}
	}
	msg, err := codec.Decode(data)
	if err != nil {
		return &protocol.Message{}
	}
	return msg
}

func writeMsg(conn *websocket.Conn, msgType protocol.MessageType, payload any) {
	data, _ := codec.Encode(codec.MustNewMessage(msgType, payload))
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func TestClient_ConnectAndSend(t *testing.T) {
	t.Parallel()

	c := NewClient(fakeServer(t, echo))
	require.NoError(t, c.Connect())
	defer c.Close()
	assert.True(t, c.IsConnected())

	require.NoError(t, c.Chat("hello"))

	msg, err := c.ReceiveWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgChat, msg.Type)
	p, err := codec.ParsePayload[protocol.ChatPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, "hello", p.Text)
}

func TestClient_BinaryFrames(t *testing.T) {
	t.Parallel()

	kinds := make(chan int, 1)
	url := fakeServer(t, func(_ int, conn *websocket.Conn) {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		kinds <- mt
		_ = conn.WriteMessage(mt, data)
		_, _, _ = conn.ReadMessage()
	})

	c := NewClient(url)
	c.Binary = true
	require.NoError(t, c.Connect())
	defer c.Close()

	require.NoError(t, c.Draw(protocol.Stroke{To: protocol.Point{X: 1, Y: 2}, Color: "#000", Width: 3}))
	assert.Equal(t, websocket.BinaryMessage, <-kinds)

	msg, err := c.ReceiveWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgDraw, msg.Type)
	stroke, err := codec.ParsePayload[protocol.Stroke](msg)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, stroke.To.Y, 0.001)
}

func TestClient_ConnectFails(t *testing.T) {
	t.Parallel()

	c := NewClient("ws://127.0.0.1:1/ws")
	assert.Error(t, c.Connect())
	assert.False(t, c.IsConnected())
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	c := NewClient(fakeServer(t, echo))
	require.NoError(t, c.Connect())

	c.Close()
	c.Close()
	assert.False(t, c.IsConnected())
	assert.ErrorIs(t, c.Leave(), ErrClosed)

	_, err := c.Receive()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClient_ReceiveTimeout(t *testing.T) {
	t.Parallel()

	c := NewClient(fakeServer(t, echo))
	require.NoError(t, c.Connect())
	defer c.Close()

	_, err := c.ReceiveWithTimeout(50 * time.Millisecond)
	assert.ErrorIs(t, err, ErrReceiveTimeout)
}

func TestClient_JoinedStoresIdentity(t *testing.T) {
	t.Parallel()

	url := fakeServer(t, func(_ int, conn *websocket.Conn) {
		msg := readMsg(conn)
		p, _ := codec.ParsePayload[protocol.JoinPayload](msg)
		writeMsg(conn, protocol.MsgJoined, protocol.JoinedPayload{Nick: p.DisplayName, Color: p.Color, Token: "tok-1"})

		readMsg(conn) // leave
		writeMsg(conn, protocol.MsgYouLeft, nil)
		_, _, _ = conn.ReadMessage()
	})

	c := NewClient(url)
	require.NoError(t, c.Connect())
	defer c.Close()

	require.NoError(t, c.Join("alice", "#ff0000"))
	msg, err := c.ReceiveWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgJoined, msg.Type)
	assert.Equal(t, "alice", c.Nick())
	assert.Equal(t, "tok-1", c.Token())

	require.NoError(t, c.Leave())
	msg, err = c.ReceiveWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgYouLeft, msg.Type)
	assert.Empty(t, c.Token())
}

func TestClient_PongUpdatesLatency(t *testing.T) {
	t.Parallel()

	url := fakeServer(t, func(_ int, conn *websocket.Conn) {
		msg := readMsg(conn)
		p, _ := codec.ParsePayload[protocol.PingPayload](msg)
		writeMsg(conn, protocol.MsgPong, protocol.PongPayload{
			ClientTimestamp: p.Timestamp - 20,
			ServerTimestamp: time.Now().UnixMilli(),
		})
		_, _, _ = conn.ReadMessage()
	})

	updates := make(chan int64, 1)
	c := NewClient(url)
	c.OnLatencyUpdate = func(l int64) { updates <- l }
	require.NoError(t, c.Connect())
	defer c.Close()

	require.NoError(t, c.Ping())
	select {
	case l := <-updates:
		assert.GreaterOrEqual(t, l, int64(20))
		assert.Equal(t, l, c.Latency())
	case <-time.After(time.Second):
		t.Fatal("no latency update")
	}

	// pong 不会进入接收队列
	_, err := c.ReceiveWithTimeout(50 * time.Millisecond)
	assert.ErrorIs(t, err, ErrReceiveTimeout)
}

func TestClient_ReconnectRejoinsWithToken(t *testing.T) {
	t.Parallel()

	rejoin := make(chan protocol.JoinPayload, 1)
	url := fakeServer(t, func(n int, conn *websocket.Conn) {
		msg := readMsg(conn)
		p, _ := codec.ParsePayload[protocol.JoinPayload](msg)
		if n == 1 {
			writeMsg(conn, protocol.MsgJoined, protocol.JoinedPayload{Nick: "bob", Color: "#00ff00", Token: "secret"})
			return // 断开第一条连接
		}
		rejoin <- *p
		writeMsg(conn, protocol.MsgJoined, protocol.JoinedPayload{Nick: "bob", Color: "#00ff00", Token: "secret"})
		_, _, _ = conn.ReadMessage()
	})

	reconnected := make(chan struct{}, 1)
	c := NewClient(url)
	c.retryInterval = 10 * time.Millisecond
	c.OnReconnect = func() { reconnected <- struct{}{} }
	require.NoError(t, c.Connect())
	defer c.Close()

	require.NoError(t, c.Join("bob", "#00ff00"))

	select {
	case p := <-rejoin:
		assert.Equal(t, "bob", p.DisplayName)
		assert.Equal(t, "#00ff00", p.Color)
		assert.Equal(t, "secret", p.Token)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not rejoin")
	}

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnReconnect not called")
	}
	assert.False(t, c.IsReconnecting())
	assert.True(t, c.IsConnected())
}

func TestClient_NoTokenClosesOnDisconnect(t *testing.T) {
	t.Parallel()

	url := fakeServer(t, func(_ int, conn *websocket.Conn) {})

	closed := make(chan struct{})
	c := NewClient(url)
	c.OnClose = func() { close(closed) }
	require.NoError(t, c.Connect())

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose not called")
	}
	assert.False(t, c.IsConnected())
}
