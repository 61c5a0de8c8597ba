package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// --- 连接速率限制 ---

// RateLimiter 按 IP 限制新连接：秒级与分钟级两个令牌桶，超限后封禁一段时间
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*ipRate

	perSecond   int
	perMinute   int
	banDuration time.Duration
	now         func() time.Time
}

type ipRate struct {
	second      *rate.Limiter
	minute      *rate.Limiter
	lastSeen    time.Time
	bannedUntil time.Time
}

// NewRateLimiter 创建连接速率限制器
func NewRateLimiter(maxPerSecond, maxPerMinute int, banDuration time.Duration) *RateLimiter {
	return &RateLimiter{
		clients:     make(map[string]*ipRate),
		perSecond:   max(maxPerSecond, 1),
		perMinute:   max(maxPerMinute, 1),
		banDuration: banDuration,
		now:         time.Now,
	}
}

// Allow 检查该 IP 是否允许建立连接
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	r, ok := rl.clients[ip]
	if !ok {
		r = &ipRate{
			second: rate.NewLimiter(rate.Limit(rl.perSecond), rl.perSecond),
			minute: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMinute)), rl.perMinute),
		}
		rl.clients[ip] = r
	}
	r.lastSeen = now

	if now.Before(r.bannedUntil) {
		return false
	}

	// 两个桶都要检查，避免短路导致分钟桶不扣减
	okSecond := r.second.AllowN(now, 1)
	okMinute := r.minute.AllowN(now, 1)
	if okSecond && okMinute {
		return true
	}

	r.bannedUntil = now.Add(rl.banDuration)
	log.Warn().Str("ip", ip).Dur("ban", rl.banDuration).Msg("⚠️ IP 连接过于频繁，暂时封禁")
	return false
}

// IsBanned 检查 IP 是否处于封禁中
func (rl *RateLimiter) IsBanned(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	r, ok := rl.clients[ip]
	return ok && rl.now().Before(r.bannedUntil)
}

// Cleanup 删除长时间没有活动且未被封禁的记录
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for ip, r := range rl.clients {
		if now.Sub(r.lastSeen) > idle && now.After(r.bannedUntil) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

// --- 来源验证 ---

// OriginChecker 来源验证器
type OriginChecker struct {
	allowed  map[string]bool
	allowAll bool
}

// NewOriginChecker 创建来源验证器，"*" 表示允许全部
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{allowed: make(map[string]bool)}
	for _, origin := range origins {
		if origin == "*" {
			oc.allowAll = true
			continue
		}
		oc.allowed[strings.ToLower(strings.TrimSuffix(origin, "/"))] = true
	}
	return oc
}

// Check 检查请求来源；没有 Origin 头的本地客户端直接放行
func (oc *OriginChecker) Check(r *http.Request) bool {
	if oc.allowAll {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return oc.allowed[strings.ToLower(origin)]
}

// --- IP 黑名单 ---

// IPFilter IP 过滤器
type IPFilter struct {
	mu      sync.RWMutex
	blocked map[string]bool
}

// NewIPFilter 创建 IP 过滤器
func NewIPFilter(blocked ...string) *IPFilter {
	f := &IPFilter{blocked: make(map[string]bool)}
	for _, ip := range blocked {
		f.blocked[ip] = true
	}
	return f
}

// Block 加入黑名单
func (f *IPFilter) Block(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked[ip] = true
}

// Unblock 移出黑名单
func (f *IPFilter) Unblock(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blocked, ip)
}

// IsAllowed 检查 IP 是否允许
func (f *IPFilter) IsAllowed(ip string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return !f.blocked[ip]
}

// GetClientIP 获取客户端真实 IP，优先代理头
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// --- 已连接客户端的消息限制 ---

// MessageRateLimiter 每个连接一个令牌桶，超限累计警告
type MessageRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*messageRate

	limit rate.Limit
	burst int
}

type messageRate struct {
	limiter  *rate.Limiter
	warnings int
}

// NewMessageRateLimiter 创建消息速率限制器
func NewMessageRateLimiter(perSecond float64, burst int) *MessageRateLimiter {
	return &MessageRateLimiter{
		limiters: make(map[string]*messageRate),
		limit:    rate.Limit(perSecond),
		burst:    max(burst, 1),
	}
}

// AllowMessage 检查是否允许该连接再发一条消息；warning 表示桶内令牌已不足一半
func (ml *MessageRateLimiter) AllowMessage(clientID string) (allowed bool, warning bool) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	r, ok := ml.limiters[clientID]
	if !ok {
		r = &messageRate{limiter: rate.NewLimiter(ml.limit, ml.burst)}
		ml.limiters[clientID] = r
	}

	if !r.limiter.Allow() {
		r.warnings++
		return false, true
	}
	return true, r.limiter.Tokens() < float64(ml.burst)/2
}

// GetWarningCount 超限次数
func (ml *MessageRateLimiter) GetWarningCount(clientID string) int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if r, ok := ml.limiters[clientID]; ok {
		return r.warnings
	}
	return 0
}

// RemoveClient 移除连接记录
func (ml *MessageRateLimiter) RemoveClient(clientID string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.limiters, clientID)
}

// --- 聊天限制 ---

// ChatRateLimiter 聊天/猜词速率限制，实现 types.ChatLimiter
type ChatRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	limit rate.Limit
	burst int
}

// NewChatRateLimiter 创建聊天速率限制器
func NewChatRateLimiter(perSecond float64, burst int) *ChatRateLimiter {
	return &ChatRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    max(burst, 1),
	}
}

// AllowChat 检查是否允许发送聊天
func (cl *ChatRateLimiter) AllowChat(clientID string) (bool, string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	l, ok := cl.limiters[clientID]
	if !ok {
		l = rate.NewLimiter(cl.limit, cl.burst)
		cl.limiters[clientID] = l
	}
	if !l.Allow() {
		return false, "发言过快，请稍后再试"
	}
	return true, ""
}

// RemoveClient 移除连接记录
func (cl *ChatRateLimiter) RemoveClient(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	delete(cl.limiters, clientID)
}
