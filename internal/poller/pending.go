package poller

import (
	"sync"
	"sync/atomic"
	"time"
)

// PendingPoll 一笔在途轮询
type PendingPoll struct {
	Key      uint16 // class<<8 | id
	SentAt   time.Time
	Deadline time.Time
}

// PendingTracker 记录每个消息的在途轮询并按截止时间清理。
// 同一消息同时只保留一笔在途：请求前用 Has 判重即可实现计划轮询的合并。
type PendingTracker struct {
	mu      sync.Mutex
	entries map[uint16]*PendingPoll

	timeout  time.Duration
	now      func() time.Time
	timedOut atomic.Int64
}

// PendingOption 构造选项
type PendingOption func(*PendingTracker)

// WithNow 注入时钟（测试用）
func WithNow(now func() time.Time) PendingOption {
	return func(t *PendingTracker) {
		if now != nil {
			t.now = now
		}
	}
}

const defaultPollTimeout = 1500 * time.Millisecond

// NewPendingTracker 创建在途轮询跟踪器，timeout 非正时取默认值
func NewPendingTracker(timeout time.Duration, opts ...PendingOption) *PendingTracker {
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	t := &PendingTracker{
		entries: make(map[uint16]*PendingPoll),
		timeout: timeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track 登记一笔在途轮询，同消息的旧记录被覆盖
func (t *PendingTracker) Track(key uint16) *PendingPoll {
	now := t.now()
	p := &PendingPoll{
		Key:      key,
		SentAt:   now,
		Deadline: now.Add(t.timeout),
	}
	t.mu.Lock()
	t.entries[key] = p
	t.mu.Unlock()
	return p
}

// Has 判断指定消息是否有在途轮询
func (t *PendingTracker) Has(key uint16) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[key]
	return ok
}

// Resolve 用收到的响应冲销在途记录，返回请求往返耗时
func (t *PendingTracker) Resolve(key uint16) (time.Duration, bool) {
	t.mu.Lock()
	p, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	t.mu.Unlock()
	if !ok {
		return 0, false
	}
	return t.now().Sub(p.SentAt), true
}

// Drop 移除在途记录且不计入超时（写失败回滚用）
func (t *PendingTracker) Drop(key uint16) {
	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

// Sweep 移除所有已过截止时间的在途记录并返回
func (t *PendingTracker) Sweep() []*PendingPoll {
	now := t.now()
	var expired []*PendingPoll

	t.mu.Lock()
	for key, p := range t.entries {
		if now.After(p.Deadline) {
			delete(t.entries, key)
			expired = append(expired, p)
		}
	}
	t.mu.Unlock()

	t.timedOut.Add(int64(len(expired)))
	return expired
}

// Len 当前在途数量
func (t *PendingTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// TimedOut 累计超时数量
func (t *PendingTracker) TimedOut() int64 {
	return t.timedOut.Load()
}

// Timeout 配置的轮询超时
func (t *PendingTracker) Timeout() time.Duration {
	return t.timeout
}
