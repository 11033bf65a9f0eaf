package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/gnss-gateway/internal/storage/models"
)

// gnss:lastfix:{receiverID} -> FixRecord JSON
const lastFixKeyPrefix = "gnss:lastfix:"

// FixRecord 缓存与写入队列共用的定位记录，保留协议原始整数
type FixRecord struct {
	ReceiverID string    `json:"receiver_id"`
	ITowMs     uint32    `json:"itow_ms"`
	LonE7      int32     `json:"lon_e7"`
	LatE7      int32     `json:"lat_e7"`
	HeightMm   int32     `json:"height_mm"`
	HMSLMm     int32     `json:"hmsl_mm"`
	HAccMm     uint32    `json:"h_acc_mm"`
	VAccMm     uint32    `json:"v_acc_mm"`
	ReceivedAt time.Time `json:"received_at"`
}

// TrackPoint 转换为数据库模型
func (r *FixRecord) TrackPoint() models.TrackPoint {
	return models.TrackPoint{
		ReceiverID: r.ReceiverID,
		ITowMs:     int64(r.ITowMs),
		LonE7:      r.LonE7,
		LatE7:      r.LatE7,
		HeightMm:   r.HeightMm,
		HMSLMm:     r.HMSLMm,
		HAccMm:     int64(r.HAccMm),
		VAccMm:     int64(r.VAccMm),
		ReceivedAt: r.ReceivedAt,
	}
}

// LastFixCache 每个接收机的最近定位缓存
type LastFixCache struct {
	client *Client
	ttl    time.Duration
}

// NewLastFixCache 创建最近定位缓存，ttl<=0 时默认5分钟
func NewLastFixCache(client *Client, ttl time.Duration) *LastFixCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LastFixCache{client: client, ttl: ttl}
}

// SetLastFix 写入接收机最近定位
func (c *LastFixCache) SetLastFix(ctx context.Context, rec *FixRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal fix record: %w", err)
	}
	return c.client.Set(ctx, lastFixKeyPrefix+rec.ReceiverID, data, c.ttl).Err()
}

// GetLastFix 读取接收机最近定位，缓存未命中时返回 (nil, nil)
func (c *LastFixCache) GetLastFix(ctx context.Context, receiverID string) (*FixRecord, error) {
	val, err := c.client.Get(ctx, lastFixKeyPrefix+receiverID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec FixRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal fix record: %w", err)
	}
	return &rec, nil
}
