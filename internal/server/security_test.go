package server

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := NewRateLimiter(5, 10, time.Second)
	rl.now = clock.Now
	ip := "127.0.0.1"

	for i := range 5 {
		assert.True(t, rl.Allow(ip), "Request %d should be allowed", i)
	}
	assert.False(t, rl.Allow(ip), "6th request should be blocked")
	assert.True(t, rl.IsBanned(ip))

	// 其他 IP 不受影响
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_BanExpires(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := NewRateLimiter(2, 50, 2*time.Second)
	rl.now = clock.Now
	ip := "192.168.1.1"

	assert.True(t, rl.Allow(ip))
	assert.True(t, rl.Allow(ip))
	assert.False(t, rl.Allow(ip))

	clock.Advance(time.Second)
	assert.False(t, rl.Allow(ip), "still banned")

	clock.Advance(1100 * time.Millisecond)
	assert.False(t, rl.IsBanned(ip))
	assert.True(t, rl.Allow(ip))
}

func TestRateLimiter_MinuteLimit(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := NewRateLimiter(100, 5, time.Second)
	rl.now = clock.Now
	ip := "10.0.0.1"

	for i := range 5 {
		assert.True(t, rl.Allow(ip), "Request %d should be allowed", i)
		clock.Advance(100 * time.Millisecond)
	}
	assert.False(t, rl.Allow(ip), "minute bucket exhausted")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := NewRateLimiter(10, 60, time.Minute)
	rl.now = clock.Now

	rl.Allow("1.1.1.1")
	clock.Advance(11 * time.Minute)
	rl.Allow("2.2.2.2")

	assert.Equal(t, 1, rl.Cleanup(10*time.Minute))
	assert.Equal(t, 0, rl.Cleanup(10*time.Minute))
}

func TestRateLimiter_Concurrency(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1000, 10000, time.Second)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				rl.Allow("1.2.3.4")
			}
		}()
	}
	wg.Wait()
	assert.False(t, rl.IsBanned("1.2.3.4"))
}

func TestMessageRateLimiter(t *testing.T) {
	t.Parallel()

	ml := NewMessageRateLimiter(1, 4)

	for i := range 4 {
		allowed, _ := ml.AllowMessage("c1")
		assert.True(t, allowed, "message %d", i)
	}
	allowed, warning := ml.AllowMessage("c1")
	assert.False(t, allowed)
	assert.True(t, warning)
	assert.Equal(t, 1, ml.GetWarningCount("c1"))

	// 每个连接独立
	allowed, _ = ml.AllowMessage("c2")
	assert.True(t, allowed)

	ml.RemoveClient("c1")
	assert.Equal(t, 0, ml.GetWarningCount("c1"))
	allowed, _ = ml.AllowMessage("c1")
	assert.True(t, allowed)
}

func TestMessageRateLimiter_WarnsNearLimit(t *testing.T) {
	t.Parallel()

	ml := NewMessageRateLimiter(1, 4)
	_, warning := ml.AllowMessage("c1")
	assert.False(t, warning)
	ml.AllowMessage("c1")
	_, warning = ml.AllowMessage("c1")
	assert.True(t, warning)
}

func TestChatRateLimiter(t *testing.T) {
	t.Parallel()

	cl := NewChatRateLimiter(0.5, 2)

	allowed, reason := cl.AllowChat("c1")
	assert.True(t, allowed)
	assert.Empty(t, reason)
	allowed, _ = cl.AllowChat("c1")
	assert.True(t, allowed)

	allowed, reason = cl.AllowChat("c1")
	assert.False(t, allowed)
	assert.NotEmpty(t, reason)

	cl.RemoveClient("c1")
	allowed, _ = cl.AllowChat("c1")
	assert.True(t, allowed)
}

func TestIPFilter(t *testing.T) {
	t.Parallel()

	f := NewIPFilter("6.6.6.6")
	assert.False(t, f.IsAllowed("6.6.6.6"))
	assert.True(t, f.IsAllowed("1.1.1.1"))

	f.Block("1.1.1.1")
	assert.False(t, f.IsAllowed("1.1.1.1"))

	f.Unblock("6.6.6.6")
	assert.True(t, f.IsAllowed("6.6.6.6"))
}

func TestGetClientIP_ProxyHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.2:1234", "198.51.100.7"},
		{"forwarded wins", map[string]string{"X-Forwarded-For": "1.1.1.1", "X-Real-IP": "2.2.2.2"}, "10.0.0.2:1234", "1.1.1.1"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{Header: http.Header{}, RemoteAddr: tt.remote}
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, GetClientIP(r))
		})
	}
}

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	req := func(origin string) *http.Request {
		r := &http.Request{Header: http.Header{}}
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	all := NewOriginChecker([]string{"*"})
	assert.True(t, all.Check(req("https://evil.example")))

	oc := NewOriginChecker([]string{"https://Sketch.example/"})
	assert.True(t, oc.Check(req("https://sketch.example")))
	assert.False(t, oc.Check(req("https://evil.example")))
	assert.True(t, oc.Check(req("")), "no origin header")
}
