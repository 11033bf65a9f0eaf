package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// gnss:trackqueue -> List[FixRecord JSON]，LPUSH 入队，RPopCount 批量出队
const trackQueueKey = "gnss:trackqueue"

// TrackQueue 轨迹点写入队列，削峰后由 ingest worker 批量落库
type TrackQueue struct {
	client *Client
	max    int64 // 队列长度上限，超出时丢弃最旧记录；<=0 不限长
}

// NewTrackQueue 创建轨迹写入队列
func NewTrackQueue(client *Client, max int64) *TrackQueue {
	return &TrackQueue{client: client, max: max}
}

// Enqueue 入队一条定位记录
func (q *TrackQueue) Enqueue(ctx context.Context, rec *FixRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal fix record: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.LPush(ctx, trackQueueKey, data)
	if q.max > 0 {
		// 保留最新 max 条，裁掉尾部最旧记录
		pipe.LTrim(ctx, trackQueueKey, 0, q.max-1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// DequeueBatch 批量出队，最旧记录在前；队列为空返回空切片
func (q *TrackQueue) DequeueBatch(ctx context.Context, n int) ([]FixRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	vals, err := q.client.RPopCount(ctx, trackQueueKey, n).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]FixRecord, 0, len(vals))
	for _, v := range vals {
		var rec FixRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			// 已出队的坏记录无法回退，跳过
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Requeue 落库失败时重新入队，保持原有消费顺序
func (q *TrackQueue) Requeue(ctx context.Context, recs []FixRecord) error {
	if len(recs) == 0 {
		return nil
	}

	pipe := q.client.Pipeline()
	// RPopCount 先弹最旧，逆序 RPUSH 使最旧仍然最先被消费
	for i := len(recs) - 1; i >= 0; i-- {
		data, err := json.Marshal(&recs[i])
		if err != nil {
			return fmt.Errorf("marshal fix record: %w", err)
		}
		pipe.RPush(ctx, trackQueueKey, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Depth 返回当前队列长度
func (q *TrackQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, trackQueueKey).Result()
}
