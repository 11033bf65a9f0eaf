package presence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisTracker Redis版本的在线状态跟踪，支持多网关实例共享视图
type RedisTracker struct {
	client   *redis.Client
	serverID string
	timeout  time.Duration

	// 本地兜底缓存，Redis 不可达时仍能回答本实例接收机的状态
	mu    sync.RWMutex
	local map[string]time.Time
}

// receiverState Redis存储的接收机状态
type receiverState struct {
	ReceiverID string    `json:"receiver_id"`
	ServerID   string    `json:"server_id"`
	LastSeen   time.Time `json:"last_seen"`
}

// gnss:presence:{id} -> receiverState JSON
const keyReceiverPrefix = "gnss:presence:"

// NewRedisTracker 创建Redis在线状态跟踪器
func NewRedisTracker(client *redis.Client, serverID string, timeout time.Duration) *RedisTracker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if serverID == "" {
		serverID = uuid.New().String()
	}
	return &RedisTracker{
		client:   client,
		serverID: serverID,
		timeout:  timeout,
		local:    make(map[string]time.Time),
	}
}

// Touch 记录接收机最近一次收到帧的时间
func (m *RedisTracker) Touch(id string, t time.Time) {
	m.mu.Lock()
	m.local[id] = t
	m.mu.Unlock()

	state := receiverState{ReceiverID: id, ServerID: m.serverID, LastSeen: t}
	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	// 过期时间为在线窗口的2倍，停止收帧后由 Redis 自行清理
	m.client.Set(context.Background(), keyReceiverPrefix+id, data, m.timeout*2)
}

// LastSeen 返回接收机最近活动时间
func (m *RedisTracker) LastSeen(id string) (time.Time, bool) {
	state, err := m.getState(context.Background(), id)
	if err != nil {
		m.mu.RLock()
		ts, ok := m.local[id]
		m.mu.RUnlock()
		return ts, ok
	}
	return state.LastSeen, true
}

// IsPresent 判断接收机是否在线
func (m *RedisTracker) IsPresent(id string, now time.Time) bool {
	ts, ok := m.LastSeen(id)
	if !ok {
		return false
	}
	return now.Sub(ts) <= m.timeout
}

// PresentCount 返回当前在线接收机数量
func (m *RedisTracker) PresentCount(now time.Time) int {
	count := 0
	for _, ts := range m.Snapshot() {
		if now.Sub(ts) <= m.timeout {
			count++
		}
	}
	return count
}

// Snapshot 返回全部接收机的最近活动时间
func (m *RedisTracker) Snapshot() map[string]time.Time {
	ctx := context.Background()
	out := make(map[string]time.Time)

	var cursor uint64
	for {
		keys, nextCursor, err := m.client.Scan(ctx, cursor, keyReceiverPrefix+"*", 100).Result()
		if err != nil {
			// Redis 不可达时退回本地视图
			m.mu.RLock()
			for id, ts := range m.local {
				out[id] = ts
			}
			m.mu.RUnlock()
			return out
		}
		for _, key := range keys {
			id := key[len(keyReceiverPrefix):]
			state, err := m.getState(ctx, id)
			if err != nil {
				continue
			}
			out[id] = state.LastSeen
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return out
}

func (m *RedisTracker) getState(ctx context.Context, id string) (*receiverState, error) {
	val, err := m.client.Get(ctx, keyReceiverPrefix+id).Result()
	if err != nil {
		return nil, err
	}
	var state receiverState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, err
	}
	return &state, nil
}
