package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/taoyao-code/gnss-gateway/internal/metrics"
	"github.com/taoyao-code/gnss-gateway/internal/presence"
	"github.com/taoyao-code/gnss-gateway/internal/protocol/ubx"
	"github.com/taoyao-code/gnss-gateway/internal/transport"
)

var (
	// ErrCommandBacklog 操作员轮询队列已满
	ErrCommandBacklog = errors.New("poll command backlog full")
)

// pollRequest 一次待发的轮询
type pollRequest struct {
	key      uint16
	operator bool // 操作员触发，插在计划轮询之前
}

// LoopConfig 单接收机轮询参数
type LoopConfig struct {
	ReceiverID   string
	Messages     []uint16 // 计划轮询的消息键，按序发送
	PollInterval time.Duration
	PollTimeout  time.Duration
	PollRate     float64 // 每秒轮询写出上限
	PollBurst    int

	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Loop 单台接收机的轮询主循环。
// 独占串口与解码链路：一个读取协程喂字节给适配器，一个轮询协程
// 按节奏写出请求并清理超时；请求与响应按 class/id 配对。
type Loop struct {
	receiverID string
	port       transport.Port
	adapter    *ubx.Adapter
	names      *ubx.Names
	pending    *PendingTracker
	breaker    *Breaker
	limiter    *rate.Limiter
	presence   presence.Tracker
	appMetrics *metrics.AppMetrics
	logger     *zap.Logger

	pollInterval time.Duration
	messages     []uint16

	cmdC     chan pollRequest
	stopC    chan struct{}
	stopOnce sync.Once

	// 统计
	pollsSent    atomic.Int64
	pollsSkipped atomic.Int64
	writeErrors  atomic.Int64
	bytesRead    atomic.Int64
	framesSeen   atomic.Int64
}

// NewLoop 创建轮询循环并接管适配器回调
func NewLoop(cfg LoopConfig, port transport.Port, adapter *ubx.Adapter, names *ubx.Names,
	pres presence.Tracker, m *metrics.AppMetrics, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	pollRate := cfg.PollRate
	if pollRate <= 0 {
		pollRate = 10
	}
	burst := cfg.PollBurst
	if burst <= 0 {
		burst = 3
	}

	l := &Loop{
		receiverID:   cfg.ReceiverID,
		port:         port,
		adapter:      adapter,
		names:        names,
		pending:      NewPendingTracker(cfg.PollTimeout),
		breaker:      NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		limiter:      rate.NewLimiter(rate.Limit(pollRate), burst),
		presence:     pres,
		appMetrics:   m,
		logger:       logger.With(zap.String("receiver_id", cfg.ReceiverID)),
		pollInterval: cfg.PollInterval,
		messages:     cfg.Messages,
		cmdC:         make(chan pollRequest, 16),
		stopC:        make(chan struct{}),
	}

	l.breaker.SetStateChangeCallback(func(from, to State) {
		l.logger.Warn("poll circuit state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	})

	adapter.OnFrame = l.onFrame
	adapter.OnDecodeError = l.onDecodeError
	return l
}

// Run 运行读取与轮询两个协程，直到 ctx 取消或 Stop
func (l *Loop) Run(ctx context.Context) {
	names := make([]string, 0, len(l.messages))
	for _, key := range l.messages {
		names = append(names, l.names.Name(byte(key>>8), byte(key)))
	}
	l.logger.Info("poll loop started",
		zap.Strings("messages", names),
		zap.Duration("interval", l.pollInterval))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		l.pollLoop(ctx)
	}()
	wg.Wait()

	l.logger.Info("poll loop stopped",
		zap.Int64("polls_sent", l.pollsSent.Load()),
		zap.Int64("polls_timed_out", l.pending.TimedOut()))
}

// Stop 停止循环并关闭串口，幂等
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopC)
		_ = l.port.Close()
	})
}

// RequestPoll 操作员触发的即时轮询，非阻塞入队
func (l *Loop) RequestPoll(key uint16) error {
	select {
	case l.cmdC <- pollRequest{key: key, operator: true}:
		return nil
	default:
		return ErrCommandBacklog
	}
}

// readLoop 持续读串口并推进解码；读超时表现为零字节读，直接跳过
func (l *Loop) readLoop(ctx context.Context) {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopC:
			return
		default:
		}

		n, err := l.port.Read(buf)
		if err != nil {
			select {
			case <-l.stopC:
				return
			default:
			}
			l.logger.Warn("serial read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-l.stopC:
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if n == 0 {
			continue
		}

		l.bytesRead.Add(int64(n))
		if l.appMetrics != nil {
			l.appMetrics.BytesReadTotal.WithLabelValues(l.receiverID).Add(float64(n))
		}
		if _, err := l.adapter.ProcessBytes(ctx, l.receiverID, buf[:n]); err != nil {
			return // 仅上下文取消
		}
	}
}

// pollLoop 按节奏发出计划轮询、优先处理操作员请求、清理超时
func (l *Loop) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	sweeper := time.NewTicker(l.sweepInterval())
	defer sweeper.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopC:
			return
		case req := <-l.cmdC:
			l.sendPoll(ctx, req)
		case <-ticker.C:
			l.drainCommands(ctx)
			for _, key := range l.messages {
				l.sendPoll(ctx, pollRequest{key: key})
			}
		case <-sweeper.C:
			l.sweepPending()
		}
	}
}

// drainCommands 计划轮询前先清空操作员队列
func (l *Loop) drainCommands(ctx context.Context) {
	for {
		select {
		case req := <-l.cmdC:
			l.sendPoll(ctx, req)
		default:
			return
		}
	}
}

// sendPoll 发出一笔轮询：同消息在途时合并，熔断打开时跳过
func (l *Loop) sendPoll(ctx context.Context, req pollRequest) {
	if l.pending.Has(req.key) {
		return
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return
	}
	if err := l.breaker.Allow(); err != nil {
		l.pollsSkipped.Add(1)
		l.logger.Debug("poll skipped", zap.Error(err))
		return
	}

	class, id := byte(req.key>>8), byte(req.key)
	frame := ubx.EncodePoll(class, id)

	l.pending.Track(req.key)
	if _, err := l.port.Write(frame); err != nil {
		l.pending.Drop(req.key)
		l.writeErrors.Add(1)
		l.breaker.RecordFailure()
		l.logger.Warn("poll write failed",
			zap.String("msg", l.names.Name(class, id)),
			zap.Error(err))
		return
	}

	l.pollsSent.Add(1)
	if l.appMetrics != nil {
		l.appMetrics.PollRequestsTotal.WithLabelValues(l.receiverID, l.names.Name(class, id)).Inc()
	}
}

// sweepPending 超时清理：计数、喂给熔断器
func (l *Loop) sweepPending() {
	expired := l.pending.Sweep()
	for _, p := range expired {
		l.breaker.RecordFailure()
		if l.appMetrics != nil {
			l.appMetrics.PollTimeoutsTotal.WithLabelValues(l.receiverID).Inc()
		}
		l.logger.Debug("poll timed out",
			zap.String("msg", l.names.Name(byte(p.Key>>8), byte(p.Key))),
			zap.Time("sent_at", p.SentAt))
	}
}

func (l *Loop) sweepInterval() time.Duration {
	d := l.pending.Timeout() / 2
	if d < 10*time.Millisecond {
		return 10 * time.Millisecond
	}
	if d > time.Second {
		return time.Second
	}
	return d
}

// onFrame 解码出完整帧：刷新在线状态、冲销在途轮询
func (l *Loop) onFrame(f *ubx.Frame) {
	l.framesSeen.Add(1)
	now := time.Now()
	if l.presence != nil {
		l.presence.Touch(l.receiverID, now)
	}
	if l.appMetrics != nil {
		l.appMetrics.FramesDecodedTotal.WithLabelValues(l.names.Name(f.Class, f.ID)).Inc()
	}
	if rtt, ok := l.pending.Resolve(f.Key()); ok {
		l.breaker.RecordSuccess()
		if l.appMetrics != nil {
			l.appMetrics.PollRoundTrip.WithLabelValues(l.receiverID).Observe(rtt.Seconds())
		}
	}
}

func (l *Loop) onDecodeError(err error) {
	kind := "other"
	switch {
	case errors.Is(err, ubx.ErrChecksumMismatch):
		kind = "checksum"
	case errors.Is(err, ubx.ErrPayloadTooLarge):
		kind = "oversize"
	}
	if l.appMetrics != nil {
		l.appMetrics.DecodeErrorsTotal.WithLabelValues(kind).Inc()
	}
}

// LoopStats 单循环统计快照
type LoopStats struct {
	ReceiverID    string       `json:"receiver_id"`
	PollsSent     int64        `json:"polls_sent"`
	PollsSkipped  int64        `json:"polls_skipped"`
	PollsTimedOut int64        `json:"polls_timed_out"`
	WriteErrors   int64        `json:"write_errors"`
	BytesRead     int64        `json:"bytes_read"`
	FramesSeen    int64        `json:"frames_seen"`
	PendingPolls  int          `json:"pending_polls"`
	Breaker       BreakerStats `json:"breaker"`
}

// Stats 获取统计信息
func (l *Loop) Stats() LoopStats {
	return LoopStats{
		ReceiverID:    l.receiverID,
		PollsSent:     l.pollsSent.Load(),
		PollsSkipped:  l.pollsSkipped.Load(),
		PollsTimedOut: l.pending.TimedOut(),
		WriteErrors:   l.writeErrors.Load(),
		BytesRead:     l.bytesRead.Load(),
		FramesSeen:    l.framesSeen.Load(),
		PendingPolls:  l.pending.Len(),
		Breaker:       l.breaker.Stats(),
	}
}
