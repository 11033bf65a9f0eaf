package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
)

// 使用测试用Redis客户端（需要真实Redis实例）
func setupTestClient(t *testing.T) *Client {
	client, err := NewClient(cfgpkg.RedisConfig{
		Addr: "localhost:6379",
		DB:   15, // 使用测试专用数据库
	})
	if err != nil {
		t.Skip("Redis not available, skipping test")
		return nil
	}

	ctx := context.Background()
	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})

	return client
}

func testFix(receiverID string, itow uint32) *FixRecord {
	return &FixRecord{
		ReceiverID: receiverID,
		ITowMs:     itow,
		LonE7:      -739847460,
		LatE7:      407127730,
		HeightMm:   10250,
		HMSLMm:     -3500,
		HAccMm:     2500,
		VAccMm:     4100,
		ReceivedAt: time.Now().Truncate(time.Millisecond),
	}
}

func TestNewClient_NotConfigured(t *testing.T) {
	_, err := NewClient(cfgpkg.RedisConfig{})
	assert.Error(t, err)
}

func TestTrackQueue_EnqueueDequeue(t *testing.T) {
	client := setupTestClient(t)
	if client == nil {
		return
	}

	q := NewTrackQueue(client, 0)
	ctx := context.Background()

	for i := uint32(1); i <= 3; i++ {
		require.NoError(t, q.Enqueue(ctx, testFix("rover-1", i)))
	}

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), depth)

	// 最旧记录先出队
	batch, err := q.DequeueBatch(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, uint32(1), batch[0].ITowMs)
	assert.Equal(t, uint32(2), batch[1].ITowMs)

	batch, err = q.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, uint32(3), batch[0].ITowMs)

	batch, err = q.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestTrackQueue_TrimDropsOldest(t *testing.T) {
	client := setupTestClient(t)
	if client == nil {
		return
	}

	q := NewTrackQueue(client, 5)
	ctx := context.Background()

	for i := uint32(1); i <= 8; i++ {
		require.NoError(t, q.Enqueue(ctx, testFix("rover-1", i)))
	}

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), depth)

	batch, err := q.DequeueBatch(ctx, 5)
	require.NoError(t, err)
	require.Len(t, batch, 5)
	// 1..3 被裁掉，剩 4..8
	assert.Equal(t, uint32(4), batch[0].ITowMs)
	assert.Equal(t, uint32(8), batch[4].ITowMs)
}

func TestTrackQueue_Requeue(t *testing.T) {
	client := setupTestClient(t)
	if client == nil {
		return
	}

	q := NewTrackQueue(client, 0)
	ctx := context.Background()

	for i := uint32(1); i <= 3; i++ {
		require.NoError(t, q.Enqueue(ctx, testFix("rover-1", i)))
	}

	batch, err := q.DequeueBatch(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	require.NoError(t, q.Requeue(ctx, batch))

	// 重新入队后消费顺序不变
	batch, err = q.DequeueBatch(ctx, 3)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, uint32(1), batch[0].ITowMs)
	assert.Equal(t, uint32(2), batch[1].ITowMs)
	assert.Equal(t, uint32(3), batch[2].ITowMs)
}

func TestLastFixCache_RoundTrip(t *testing.T) {
	client := setupTestClient(t)
	if client == nil {
		return
	}

	cache := NewLastFixCache(client, time.Minute)
	ctx := context.Background()

	rec := testFix("rover-1", 123456789)
	require.NoError(t, cache.SetLastFix(ctx, rec))

	got, err := cache.GetLastFix(ctx, "rover-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ReceiverID, got.ReceiverID)
	assert.Equal(t, rec.ITowMs, got.ITowMs)
	assert.Equal(t, rec.LonE7, got.LonE7)
	assert.Equal(t, rec.LatE7, got.LatE7)
	assert.True(t, got.ReceivedAt.Equal(rec.ReceivedAt))

	// 未命中返回 (nil, nil)
	got, err = cache.GetLastFix(ctx, "base-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFixRecord_TrackPoint(t *testing.T) {
	rec := testFix("rover-1", 42)
	p := rec.TrackPoint()
	assert.Equal(t, "rover-1", p.ReceiverID)
	assert.Equal(t, int64(42), p.ITowMs)
	assert.Equal(t, rec.LonE7, p.LonE7)
	assert.Equal(t, rec.LatE7, p.LatE7)
	assert.Equal(t, int64(rec.HAccMm), p.HAccMm)
	assert.True(t, p.ReceivedAt.Equal(rec.ReceivedAt))
}
