package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/gnss-gateway/internal/metrics"
	"github.com/taoyao-code/gnss-gateway/internal/storage/models"
	redisstorage "github.com/taoyao-code/gnss-gateway/internal/storage/redis"
)

// Queue 轨迹写入队列（生产实现为 redis.TrackQueue）
type Queue interface {
	DequeueBatch(ctx context.Context, n int) ([]redisstorage.FixRecord, error)
	Requeue(ctx context.Context, recs []redisstorage.FixRecord) error
	Depth(ctx context.Context) (int64, error)
}

// Sink 批量落库端（生产实现为 pg.Repository）
type Sink interface {
	InsertTrackPoints(ctx context.Context, pts []models.TrackPoint) (int, error)
}

// Worker 周期性将轨迹队列批量写入数据库
type Worker struct {
	queue         Queue
	sink          Sink
	logger        *zap.Logger
	batchSize     int
	flushInterval time.Duration
	appMetrics    *metrics.AppMetrics
	stopC         chan struct{}

	// 统计
	written  atomic.Int64
	requeued atomic.Int64
	dropped  atomic.Int64
}

// NewWorker 创建写入Worker
func NewWorker(queue Queue, sink Sink, batchSize int, flushInterval time.Duration, m *metrics.AppMetrics, logger *zap.Logger) *Worker {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:         queue,
		sink:          sink,
		logger:        logger,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		appMetrics:    m,
		stopC:         make(chan struct{}),
	}
}

// Start 启动Worker，阻塞直到 ctx 取消或 Stop
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("ingest worker started",
		zap.Int("batch_size", w.batchSize),
		zap.Duration("flush_interval", w.flushInterval))

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("ingest worker stopping")
			return
		case <-w.stopC:
			w.logger.Info("ingest worker stopped")
			return
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// Stop 停止Worker
func (w *Worker) Stop() {
	close(w.stopC)
}

// flush 出队一批并落库，失败时重新入队
func (w *Worker) flush(ctx context.Context) {
	recs, err := w.queue.DequeueBatch(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("dequeue batch failed", zap.Error(err))
		return
	}

	if len(recs) > 0 {
		pts := make([]models.TrackPoint, len(recs))
		for i := range recs {
			pts[i] = recs[i].TrackPoint()
		}

		n, err := w.sink.InsertTrackPoints(ctx, pts)
		if err != nil {
			w.logger.Error("insert track points failed",
				zap.Int("count", len(pts)),
				zap.Error(err))
			// 队列本身持久化，放回队尾等下一轮
			if rqErr := w.queue.Requeue(ctx, recs); rqErr != nil {
				w.dropped.Add(int64(len(recs)))
				w.logger.Error("requeue failed, records dropped",
					zap.Int("count", len(recs)),
					zap.Error(rqErr))
			} else {
				w.requeued.Add(int64(len(recs)))
			}
		} else {
			w.written.Add(int64(n))
			if w.appMetrics != nil {
				w.appMetrics.TrackPointsWritten.Add(float64(n))
			}
			w.logger.Debug("track points written", zap.Int("count", n))
		}
	}

	if w.appMetrics != nil {
		if depth, err := w.queue.Depth(ctx); err == nil {
			w.appMetrics.IngestQueueDepth.Set(float64(depth))
		}
	}
}

// Stats 获取统计信息
func (w *Worker) Stats() map[string]int64 {
	return map[string]int64{
		"written":  w.written.Load(),
		"requeued": w.requeued.Load(),
		"dropped":  w.dropped.Load(),
	}
}
