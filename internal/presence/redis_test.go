package presence

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 使用测试用Redis客户端（需要真实Redis实例）
func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // 使用测试专用数据库
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping test")
		return nil
	}

	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})

	return client
}

func TestRedisTracker_Basic(t *testing.T) {
	client := setupTestRedis(t)
	if client == nil {
		return
	}

	trk := NewRedisTracker(client, "gw-test-1", 5*time.Minute)
	require.NotNil(t, trk)

	now := time.Now()
	trk.Touch("rover-1", now)

	assert.True(t, trk.IsPresent("rover-1", now.Add(1*time.Minute)))
	assert.False(t, trk.IsPresent("rover-1", now.Add(10*time.Minute)))
	assert.False(t, trk.IsPresent("base-1", now))
}

func TestRedisTracker_SharedView(t *testing.T) {
	client := setupTestRedis(t)
	if client == nil {
		return
	}

	// 两个网关实例共享同一在线视图
	trk1 := NewRedisTracker(client, "gw-1", 5*time.Minute)
	trk2 := NewRedisTracker(client, "gw-2", 5*time.Minute)

	now := time.Now()
	trk1.Touch("rover-1", now)
	trk2.Touch("base-1", now)

	assert.True(t, trk1.IsPresent("base-1", now))
	assert.True(t, trk2.IsPresent("rover-1", now))
	assert.Equal(t, 2, trk1.PresentCount(now))
	assert.Equal(t, 2, trk2.PresentCount(now))
}

func TestRedisTracker_Snapshot(t *testing.T) {
	client := setupTestRedis(t)
	if client == nil {
		return
	}

	trk := NewRedisTracker(client, "gw-test-1", 5*time.Minute)

	now := time.Now()
	trk.Touch("rover-1", now)
	trk.Touch("base-1", now)

	snap := trk.Snapshot()
	assert.Len(t, snap, 2)
	assert.Contains(t, snap, "rover-1")
	assert.Contains(t, snap, "base-1")
}

func TestRedisTracker_ServerIDGeneration(t *testing.T) {
	client := setupTestRedis(t)
	if client == nil {
		return
	}

	trk := NewRedisTracker(client, "", 5*time.Minute)
	assert.NotEmpty(t, trk.serverID)
}

func TestRedisTracker_Interface(t *testing.T) {
	var _ Tracker = NewRedisTracker(nil, "gw", time.Minute)
	var _ Tracker = NewMemoryTracker(time.Minute)
}
