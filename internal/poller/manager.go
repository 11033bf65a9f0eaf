package poller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
	"github.com/taoyao-code/gnss-gateway/internal/metrics"
	"github.com/taoyao-code/gnss-gateway/internal/presence"
	"github.com/taoyao-code/gnss-gateway/internal/protocol/ubx"
	"github.com/taoyao-code/gnss-gateway/internal/transport"
)

var (
	// ErrReceiverNotFound 接收机不存在或未以串口方式接入
	ErrReceiverNotFound = errors.New("receiver not found")
	// ErrUnknownMessage 未知的消息名
	ErrUnknownMessage = errors.New("unknown message name")
)

// MessageKey 将配置消息名映射为路由键
func MessageKey(name string) (uint16, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "posllh":
		return ubx.Key(ubx.ClassNav, ubx.IDNavPosLLH), true
	case "svinfo":
		return ubx.Key(ubx.ClassNav, ubx.IDNavSvInfo), true
	case "sat":
		return ubx.Key(ubx.ClassNav, ubx.IDNavSat), true
	}
	return 0, false
}

// PortOpener 打开串口的函数签名，测试注入内存端口
type PortOpener func(device string, baud int, readTimeout time.Duration) (transport.Port, error)

// Manager 管理全部串口接收机的轮询循环
type Manager struct {
	receivers  []cfgpkg.ReceiverConfig
	proto      cfgpkg.ProtocolConfig
	table      *ubx.Table
	names      *ubx.Names
	presence   presence.Tracker
	appMetrics *metrics.AppMetrics
	logger     *zap.Logger
	opener     PortOpener

	mu    sync.Mutex
	loops map[string]*Loop
	wg    sync.WaitGroup
}

// NewManager 创建轮询管理器
func NewManager(receivers []cfgpkg.ReceiverConfig, proto cfgpkg.ProtocolConfig,
	table *ubx.Table, names *ubx.Names, pres presence.Tracker,
	m *metrics.AppMetrics, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		receivers:  receivers,
		proto:      proto,
		table:      table,
		names:      names,
		presence:   pres,
		appMetrics: m,
		logger:     logger,
		opener:     transport.OpenSerial,
		loops:      make(map[string]*Loop),
	}
}

// SetPortOpener 替换串口打开函数（测试注入）
func (m *Manager) SetPortOpener(open PortOpener) {
	if open != nil {
		m.opener = open
	}
}

// Start 为每台串口接收机打开端口并启动循环。
// 单台打开失败只记录并跳过，不影响其余接收机。
func (m *Manager) Start(ctx context.Context) {
	for _, rc := range m.receivers {
		if rc.Transport != cfgpkg.TransportSerial {
			continue
		}

		port, err := m.opener(rc.Device, rc.Baud, rc.ReadTimeout)
		if err != nil {
			m.logger.Error("open serial port failed",
				zap.String("receiver_id", rc.ID),
				zap.String("device", rc.Device),
				zap.Error(err))
			continue
		}

		adapter := ubx.NewAdapter(m.table, m.names, m.proto.MaxPayload, m.logger)
		loop := NewLoop(LoopConfig{
			ReceiverID:   rc.ID,
			Messages:     scheduledKeys(rc.Messages),
			PollInterval: rc.PollInterval,
			PollTimeout:  m.proto.PollTimeout,
			PollRate:     m.proto.PollRate,
			PollBurst:    m.proto.PollBurst,
		}, port, adapter, m.names, m.presence, m.appMetrics, m.logger)

		m.mu.Lock()
		m.loops[rc.ID] = loop
		m.mu.Unlock()

		if m.appMetrics != nil {
			m.appMetrics.ConnectedReceivers.Inc()
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer func() {
				if m.appMetrics != nil {
					m.appMetrics.ConnectedReceivers.Dec()
				}
			}()
			loop.Run(ctx)
		}()
	}
}

// Stop 停止所有循环并等待退出
func (m *Manager) Stop() {
	m.mu.Lock()
	loops := make([]*Loop, 0, len(m.loops))
	for _, l := range m.loops {
		loops = append(loops, l)
	}
	m.mu.Unlock()

	for _, l := range loops {
		l.Stop()
	}
	m.wg.Wait()
}

// RequestPoll 触发一次即时轮询
func (m *Manager) RequestPoll(receiverID, message string) error {
	m.mu.Lock()
	loop, ok := m.loops[receiverID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrReceiverNotFound, receiverID)
	}

	key, ok := MessageKey(message)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMessage, message)
	}
	return loop.RequestPoll(key)
}

// Receivers 列出正在轮询的接收机ID
func (m *Manager) Receivers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.loops))
	for id := range m.loops {
		ids = append(ids, id)
	}
	return ids
}

// Stats 获取所有循环的统计信息
func (m *Manager) Stats() map[string]LoopStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]LoopStats, len(m.loops))
	for id, l := range m.loops {
		out[id] = l.Stats()
	}
	return out
}

// scheduledKeys 整理计划轮询的消息键：位置解始终在列，其余按配置追加
func scheduledKeys(names []string) []uint16 {
	keys := []uint16{ubx.Key(ubx.ClassNav, ubx.IDNavPosLLH)}
	seen := map[uint16]bool{keys[0]: true}
	for _, name := range names {
		key, ok := MessageKey(name)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}
