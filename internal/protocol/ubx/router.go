package ubx

import (
	"context"
	"sync"
)

// Handler 处理一帧已验证的消息
// src 标识来源流（接收机ID或远端地址）。
type Handler func(ctx context.Context, src string, f *Frame) error

// Table class/id 到处理器的路由表
// 注册发生在启动期，热路径只持读锁。
type Table struct {
	mu       sync.RWMutex
	m        map[uint16]Handler
	fallback Handler
}

// NewTable 创建空路由表
func NewTable() *Table { return &Table{m: make(map[uint16]Handler)} }

// Register 注册指定 class/id 的处理器，重复注册以后者为准
func (t *Table) Register(class, id byte, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[Key(class, id)] = h
}

// SetFallback 注册未匹配消息的兜底处理器
func (t *Table) SetFallback(h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fallback = h
}

// Lookup 查找处理器
func (t *Table) Lookup(class, id byte) (Handler, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.m[Key(class, id)]
	return h, ok
}

// Route 分发一帧；未注册且无兜底处理器时静默忽略
func (t *Table) Route(ctx context.Context, src string, f *Frame) error {
	t.mu.RLock()
	h := t.m[f.Key()]
	fb := t.fallback
	t.mu.RUnlock()
	if h == nil {
		if fb == nil {
			return nil
		}
		return fb(ctx, src, f)
	}
	return h(ctx, src, f)
}
