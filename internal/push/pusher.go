package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
	"github.com/taoyao-code/gnss-gateway/internal/metrics"
)

// Pusher 异步Webhook外推：有界队列 + 单Worker + 重试。
// 未配置 URL 时 NewPusher 返回 nil，所有方法对 nil 接收者安全。
type Pusher struct {
	url        string
	client     *http.Client
	signer     *Signer
	deduper    *Deduper
	logger     *zap.Logger
	appMetrics *metrics.AppMetrics
	retries    int
	backoff    []time.Duration
	timeout    time.Duration
	queue      chan *Event
	stopC      chan struct{}

	// 统计
	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
	deduped atomic.Int64
}

// NewPusher 创建外推器
func NewPusher(cfg cfgpkg.PushConfig, m *metrics.AppMetrics, logger *zap.Logger) *Pusher {
	if cfg.URL == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	return &Pusher{
		url:        cfg.URL,
		client:     &http.Client{Timeout: timeout},
		signer:     NewSigner(cfg.Secret),
		deduper:    NewDeduper(cfg.DedupWindow),
		logger:     logger,
		appMetrics: m,
		retries:    retries,
		backoff:    []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second},
		timeout:    timeout,
		queue:      make(chan *Event, queueSize),
		stopC:      make(chan struct{}),
	}
}

// Publish 入队事件；去重命中或队列满时丢弃，返回是否入队
func (p *Pusher) Publish(ev *Event) bool {
	if p == nil {
		return false
	}
	if p.deduper.IsDuplicate(ev, time.Now()) {
		p.deduped.Add(1)
		p.count("dedup")
		return false
	}
	select {
	case p.queue <- ev:
		return true
	default:
		p.dropped.Add(1)
		p.count("dropped")
		p.logger.Warn("push queue full, event dropped",
			zap.String("event_id", ev.EventID),
			zap.String("receiver_id", ev.ReceiverID))
		return false
	}
}

// Start 启动Worker，阻塞直到 ctx 取消或 Stop
func (p *Pusher) Start(ctx context.Context) {
	if p == nil {
		return
	}
	p.logger.Info("webhook pusher started", zap.String("url", p.url))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("webhook pusher stopping")
			return
		case <-p.stopC:
			p.logger.Info("webhook pusher stopped")
			return
		case ev := <-p.queue:
			p.send(ctx, ev)
		}
	}
}

// Stop 停止Worker
func (p *Pusher) Stop() {
	if p == nil {
		return
	}
	close(p.stopC)
}

// send 推送单个事件，5xx 与网络错误按退避重试，4xx 不重试
func (p *Pusher) send(ctx context.Context, ev *Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.failed.Add(1)
		p.count("error")
		p.logger.Error("marshal event failed", zap.String("event_id", ev.EventID), zap.Error(err))
		return
	}

	var lastErr error
	var lastCode int
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			idx := attempt - 1
			if idx >= len(p.backoff) {
				idx = len(p.backoff) - 1
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.backoff[idx]):
			}
		}

		code, err := p.attempt(ctx, body)
		if err == nil && code >= 200 && code < 300 {
			p.sent.Add(1)
			p.count("ok")
			p.logger.Debug("event pushed",
				zap.String("event_id", ev.EventID),
				zap.String("event_type", string(ev.EventType)),
				zap.Int("status", code))
			return
		}
		if err == nil && code >= 400 && code < 500 {
			// 客户端错误不重试
			p.failed.Add(1)
			p.count("error")
			p.logger.Warn("event push rejected",
				zap.String("event_id", ev.EventID),
				zap.Int("status", code))
			return
		}
		lastErr, lastCode = err, code
	}

	p.failed.Add(1)
	p.count("error")
	if lastErr == nil {
		lastErr = fmt.Errorf("http %d", lastCode)
	}
	p.logger.Warn("event push failed",
		zap.String("event_id", ev.EventID),
		zap.Int("attempts", p.retries+1),
		zap.Error(lastErr))
}

// attempt 单次POST，每次重试重建请求体
func (p *Pusher) attempt(ctx context.Context, body []byte) (int, error) {
	actx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ts := time.Now().Unix()
	req, err := http.NewRequestWithContext(actx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gateway-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Gateway-Signature", p.signer.Sign(ts, body))

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func (p *Pusher) count(result string) {
	if p.appMetrics != nil {
		p.appMetrics.PushEventsTotal.WithLabelValues(result).Inc()
	}
}

// Stats 获取统计信息
func (p *Pusher) Stats() map[string]int64 {
	if p == nil {
		return nil
	}
	return map[string]int64{
		"sent":    p.sent.Load(),
		"failed":  p.failed.Load(),
		"dropped": p.dropped.Load(),
		"deduped": p.deduped.Load(),
	}
}
