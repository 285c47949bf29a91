// Package ratelimit 提供按客户端计数的滑动窗口限流器
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter 进程内滑动窗口限流器，只适用于单实例部署
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string][]time.Time
	calls   int
}

// 每处理这么多次请求清理一次过期键
const sweepEvery = 1024

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{now: time.Now, windows: make(map[string][]time.Time)}
}

// Allow 窗口内已有 limit 次请求时拒绝，被拒绝的请求不计数
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(cutoff)
	}

	hits := prune(l.windows[key], cutoff)
	if len(hits) >= limit {
		l.windows[key] = hits
		return false, nil
	}
	l.windows[key] = append(hits, now)
	return true, nil
}

// Reset 清空某个键的计数
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}

func (l *MemoryLimiter) sweep(cutoff time.Time) {
	for k, hits := range l.windows {
		if hits = prune(hits, cutoff); len(hits) == 0 {
			delete(l.windows, k)
		} else {
			l.windows[k] = hits
		}
	}
}

// prune 丢弃不晚于 cutoff 的时间点，hits 按时间递增
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
