package app

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
	"github.com/taoyao-code/gnss-gateway/internal/presence"
	"github.com/taoyao-code/gnss-gateway/internal/storage"
)

// PresenceSyncer 周期性把内存/Redis中的在线视图刷进 receivers 表，
// 网关重启后 last_seen_at 仍可用于离线排查。
type PresenceSyncer struct {
	store    storage.CoreRepo
	tracker  presence.Tracker
	interval time.Duration
	logger   *zap.Logger

	// 统计
	synced atomic.Int64
	errors atomic.Int64
}

// NewPresenceSyncer 创建在线状态同步器，interval<=0 时默认30秒
func NewPresenceSyncer(store storage.CoreRepo, tracker presence.Tracker,
	interval time.Duration, logger *zap.Logger) *PresenceSyncer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresenceSyncer{
		store:    store,
		tracker:  tracker,
		interval: interval,
		logger:   logger,
	}
}

// RegisterReceivers 启动时把配置中的接收机档案写入数据库，单事务完成
func (s *PresenceSyncer) RegisterReceivers(ctx context.Context, receivers []cfgpkg.ReceiverConfig) {
	if len(receivers) == 0 {
		return
	}
	err := s.store.WithTx(ctx, func(repo storage.CoreRepo) error {
		for _, rc := range receivers {
			if err := repo.RegisterReceiver(ctx, rc.ID, rc.Name, rc.Transport, rc.Device); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("register receivers failed", zap.Error(err))
		return
	}
	s.logger.Info("receivers registered", zap.Int("count", len(receivers)))
}

// Start 启动同步循环，阻塞直到 ctx 取消
func (s *PresenceSyncer) Start(ctx context.Context) {
	s.logger.Info("presence syncer started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("presence syncer stopped",
				zap.Int64("synced", s.synced.Load()),
				zap.Int64("errors", s.errors.Load()))
			return
		case <-ticker.C:
			s.syncOnce(ctx)
		}
	}
}

// syncOnce 将当前在线快照写入数据库。
// 动态来源（tcp:host:port）端口随连接变化，不落库，只在跟踪器里可见。
func (s *PresenceSyncer) syncOnce(ctx context.Context) {
	snapshot := s.tracker.Snapshot()
	if len(snapshot) == 0 {
		return
	}

	synced := 0
	for id, seenAt := range snapshot {
		if strings.HasPrefix(id, "tcp:") {
			continue
		}
		if err := s.store.TouchReceiverLastSeen(ctx, id, seenAt); err != nil {
			s.errors.Add(1)
			s.logger.Warn("touch receiver last seen failed",
				zap.String("receiver_id", id), zap.Error(err))
			continue
		}
		synced++
	}

	s.synced.Add(int64(synced))
	s.logger.Debug("presence synced", zap.Int("receivers", synced))
}

// Stats 获取统计信息
func (s *PresenceSyncer) Stats() map[string]int64 {
	return map[string]int64{
		"synced": s.synced.Load(),
		"errors": s.errors.Load(),
	}
}
