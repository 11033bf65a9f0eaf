package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
	"github.com/taoyao-code/gnss-gateway/internal/health"
	redisstorage "github.com/taoyao-code/gnss-gateway/internal/storage/redis"
)

// NewRedisClient 创建Redis客户端
// Addr 为空时返回 nil，缓存、写入队列与共享在线视图降级。
func NewRedisClient(cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if cfg.Addr == "" {
		logger.Info("redis not configured, cache and queue disabled")
		return nil, nil
	}

	client, err := redisstorage.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB))
	return client, nil
}

// AddRedisChecker 添加Redis检查器到聚合器
func AddRedisChecker(aggregator *health.Aggregator, client *redisstorage.Client) {
	if client != nil {
		aggregator.AddChecker(health.NewRedisChecker(client))
	}
}
