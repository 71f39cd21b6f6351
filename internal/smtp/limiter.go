package smtp

import (
	"sync"

	"golang.org/x/time/rate"
)

// ConnLimiter SMTP 连接限流器。
//
// 并发连接数上限之外，新建连接的速率由令牌桶约束，
// 防止入站风暴拖垮存储后端。
type ConnLimiter struct {
	mu       sync.Mutex
	maxConns int
	current  int
	rate     *rate.Limiter
}

// NewConnLimiter 创建连接限流器。
//
// maxConns 为最大并发连接数，maxPerSec 为每秒允许的新建连接数。
func NewConnLimiter(maxConns, maxPerSec int) *ConnLimiter {
	return &ConnLimiter{
		maxConns: maxConns,
		rate:     rate.NewLimiter(rate.Limit(maxPerSec), maxPerSec),
	}
}

// Acquire 获取连接许可，超出并发上限或速率限制时返回 false。
func (l *ConnLimiter) Acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current >= l.maxConns {
		return false
	}
	if !l.rate.Allow() {
		return false
	}

	l.current++
	return true
}

// Release 释放连接许可。
func (l *ConnLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current > 0 {
		l.current--
	}
}

// Current 返回当前并发连接数。
func (l *ConnLimiter) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}
