package health

import "sync/atomic"

// Readiness 启动就绪门闩
// 数据库迁移完成、采集侧（轮询/TCP接入）拉起后分别置位，
// 两者齐备之前 /health/ready 一律返回未就绪。
type Readiness struct {
	dbReady     atomic.Bool
	ingestReady atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetDBReady(v bool)     { r.dbReady.Store(v) }
func (r *Readiness) SetIngestReady(v bool) { r.ingestReady.Store(v) }

// Ready 总体就绪：各子系统均已置位
func (r *Readiness) Ready() bool {
	return r.dbReady.Load() && r.ingestReady.Load()
}
