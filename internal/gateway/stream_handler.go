package gateway

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
	"github.com/taoyao-code/gnss-gateway/internal/metrics"
	"github.com/taoyao-code/gnss-gateway/internal/presence"
	"github.com/taoyao-code/gnss-gateway/internal/protocol/ubx"
)

const (
	readBufSize = 4096

	defaultReadTimeout = 30 * time.Second
	defaultIdleTimeout = 5 * time.Minute
)

// StreamHandler TCP 字节流接入处理器
// 每个连接绑定一个独立解码适配器，来源标识取 "tcp:<远端地址>"。
// 首包必须以协议同步字节开头，否则判定为非网关流量直接断开。
type StreamHandler struct {
	table      *ubx.Table
	names      *ubx.Names
	presence   presence.Tracker
	appMetrics *metrics.AppMetrics
	logger     *zap.Logger

	maxPayload  int
	readTimeout time.Duration
	idleTimeout time.Duration
}

// NewStreamHandler 创建流处理器
func NewStreamHandler(cfg cfgpkg.TCPConfig, proto cfgpkg.ProtocolConfig,
	table *ubx.Table, names *ubx.Names, pres presence.Tracker,
	m *metrics.AppMetrics, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if names == nil {
		names = ubx.DefaultNames()
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	return &StreamHandler{
		table:       table,
		names:       names,
		presence:    pres,
		appMetrics:  m,
		logger:      logger,
		maxPayload:  proto.MaxPayload,
		readTimeout: readTimeout,
		idleTimeout: idleTimeout,
	}
}

// HandleConn 处理单条连接直到对端关闭、空闲超时或 ctx 取消
// 连接本身由调用方（tcpserver）负责关闭。
func (h *StreamHandler) HandleConn(ctx context.Context, conn net.Conn) {
	src := "tcp:" + conn.RemoteAddr().String()
	logger := h.logger.With(zap.String("src", src))

	adapter := ubx.NewAdapter(h.table, h.names, h.maxPayload, logger)
	adapter.OnFrame = func(f *ubx.Frame) {
		if h.presence != nil {
			h.presence.Touch(src, time.Now())
		}
		if h.appMetrics != nil {
			h.appMetrics.FramesDecodedTotal.WithLabelValues(h.names.Name(f.Class, f.ID)).Inc()
		}
	}
	adapter.OnDecodeError = func(err error) {
		kind := "other"
		switch {
		case errors.Is(err, ubx.ErrChecksumMismatch):
			kind = "checksum"
		case errors.Is(err, ubx.ErrPayloadTooLarge):
			kind = "oversize"
		}
		if h.appMetrics != nil {
			h.appMetrics.DecodeErrorsTotal.WithLabelValues(kind).Inc()
		}
	}

	logger.Info("stream connected")

	buf := make([]byte, readBufSize)
	sniffed := false
	lastData := time.Now()

	defer func() {
		if sniffed && h.appMetrics != nil {
			h.appMetrics.ConnectedReceivers.Dec()
		}
		stats := adapter.Stats()
		logger.Info("stream closed",
			zap.Uint64("bytes", stats.Bytes),
			zap.Uint64("frames", stats.Frames),
			zap.Uint64("decode_errors", stats.Errors))
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
			logger.Warn("set read deadline failed", zap.Error(err))
			return
		}

		n, err := conn.Read(buf)
		if n > 0 {
			lastData = time.Now()
			if !sniffed {
				if !ubx.Sniff(buf[:n]) {
					logger.Warn("unrecognized stream prefix, dropping connection",
						zap.Int("bytes", n))
					return
				}
				sniffed = true
				if h.appMetrics != nil {
					h.appMetrics.ConnectedReceivers.Inc()
				}
			}
			if h.appMetrics != nil {
				h.appMetrics.BytesReadTotal.WithLabelValues("tcp").Add(float64(n))
			}
			if _, perr := adapter.ProcessBytes(ctx, src, buf[:n]); perr != nil {
				return
			}
		}
		if err == nil {
			continue
		}

		var nerr net.Error
		switch {
		case errors.As(err, &nerr) && nerr.Timeout():
			if time.Since(lastData) >= h.idleTimeout {
				logger.Info("stream idle, closing",
					zap.Duration("idle", time.Since(lastData)))
				return
			}
		case errors.Is(err, io.EOF):
			logger.Debug("stream closed by peer")
			return
		default:
			if ctx.Err() == nil {
				logger.Warn("stream read failed", zap.Error(err))
			}
			return
		}
	}
}
