package tcpserver

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// 限流表收缩阈值与闲置判定
const (
	ipSweepThreshold = 1024
	ipIdleTTL        = 10 * time.Minute
)

// IPRateLimiter 按来源IP限制新建连接速率（Token Bucket）
type IPRateLimiter struct {
	mu    sync.Mutex
	rate  rate.Limit
	burst int
	seen  map[string]*ipEntry

	allowedCount  atomic.Int64
	rejectedCount atomic.Int64
}

type ipEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

// NewIPRateLimiter 创建每IP限流器
// perSec: 每IP每秒允许的新建连接数；<=0 表示不限流，返回 nil
func NewIPRateLimiter(perSec float64, burst int) *IPRateLimiter {
	if perSec <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 10
	}
	return &IPRateLimiter{
		rate:  rate.Limit(perSec),
		burst: burst,
		seen:  make(map[string]*ipEntry),
	}
}

// Allow 检查指定IP是否允许新建连接；nil 限流器放行一切
func (l *IPRateLimiter) Allow(ip string) bool {
	if l == nil {
		return true
	}

	now := time.Now()
	l.mu.Lock()
	e, ok := l.seen[ip]
	if !ok {
		e = &ipEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.seen[ip] = e
	}
	e.last = now
	if len(l.seen) > ipSweepThreshold {
		l.sweep(now)
	}
	lim := e.limiter
	l.mu.Unlock()

	if lim.Allow() {
		l.allowedCount.Add(1)
		return true
	}
	l.rejectedCount.Add(1)
	return false
}

// sweep 清理闲置IP，调用方须持锁
func (l *IPRateLimiter) sweep(now time.Time) {
	for ip, e := range l.seen {
		if now.Sub(e.last) > ipIdleTTL {
			delete(l.seen, ip)
		}
	}
}

// AllowedCount 允许的连接数（累计）
func (l *IPRateLimiter) AllowedCount() int64 {
	if l == nil {
		return 0
	}
	return l.allowedCount.Load()
}

// RejectedCount 被拒绝的连接数（累计）
func (l *IPRateLimiter) RejectedCount() int64 {
	if l == nil {
		return 0
	}
	return l.rejectedCount.Load()
}

// TrackedIPs 当前跟踪的IP数量
func (l *IPRateLimiter) TrackedIPs() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
