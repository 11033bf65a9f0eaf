package presence

import (
	"sync"
	"time"
)

// MemoryTracker 单实例内存实现：记录接收机最近收帧时间，判断是否在线
type MemoryTracker struct {
	mu       sync.RWMutex
	lastSeen map[string]time.Time // receiver ID -> last frame time
	timeout  time.Duration
}

func NewMemoryTracker(timeout time.Duration) *MemoryTracker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MemoryTracker{lastSeen: make(map[string]time.Time), timeout: timeout}
}

// Touch 记录接收机最近一次收到帧的时间
func (m *MemoryTracker) Touch(id string, t time.Time) {
	m.mu.Lock()
	m.lastSeen[id] = t
	m.mu.Unlock()
}

// LastSeen 返回接收机最近活动时间
func (m *MemoryTracker) LastSeen(id string) (time.Time, bool) {
	m.mu.RLock()
	ts, ok := m.lastSeen[id]
	m.mu.RUnlock()
	return ts, ok
}

// IsPresent 判断接收机是否在线
func (m *MemoryTracker) IsPresent(id string, now time.Time) bool {
	ts, ok := m.LastSeen(id)
	if !ok {
		return false
	}
	return now.Sub(ts) <= m.timeout
}

// PresentCount 返回当前在线接收机数量
func (m *MemoryTracker) PresentCount(now time.Time) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, ts := range m.lastSeen {
		if now.Sub(ts) <= m.timeout {
			count++
		}
	}
	return count
}

// Snapshot 返回全部接收机的最近活动时间
func (m *MemoryTracker) Snapshot() map[string]time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]time.Time, len(m.lastSeen))
	for id, ts := range m.lastSeen {
		out[id] = ts
	}
	return out
}
