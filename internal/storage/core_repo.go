package storage

import (
	"context"
	"time"

	"github.com/taoyao-code/gnss-gateway/internal/storage/models"
)

// CoreRepo 面向控制面的存储抽象。
// 约束：
// - 上层不直接写 SQL，统一通过本接口访问
// - 实现需要提供事务封装 WithTx
// - 接口保持 DB-agnostic（面向模型与基础类型）
// 数据面（轨迹点批量写入）走 internal/storage/pg 的原生 SQL 路径。
type CoreRepo interface {
	// ---------- 事务 ----------
	// WithTx 在单个事务中执行 fn，fn 内使用 repo 执行的所有写入/读取都在同一事务中。
	// 实现应保证嵌套调用正确复用当前事务。
	WithTx(ctx context.Context, fn func(repo CoreRepo) error) error

	// ---------- 接收机 ----------
	// EnsureReceiver 若 receiverID 不存在则创建，返回接收机记录
	EnsureReceiver(ctx context.Context, receiverID string) (*models.Receiver, error)
	// TouchReceiverLastSeen 刷新接收机最近收帧时间（不存在则插入）
	TouchReceiverLastSeen(ctx context.Context, receiverID string, at time.Time) error
	// GetReceiverByID 通过接收机标识查询，无记录时返回 (nil, nil)
	GetReceiverByID(ctx context.Context, receiverID string) (*models.Receiver, error)
	// ListReceivers 分页列表（管理/调试用）
	ListReceivers(ctx context.Context, limit, offset int) ([]models.Receiver, error)
	// RegisterReceiver 按配置登记接收机（名称/接入方式，冲突时更新）
	RegisterReceiver(ctx context.Context, receiverID, name, transport, device string) error

	// ---------- 卫星快照 ----------
	// InsertSatSnapshot 写入一条卫星可见性快照
	InsertSatSnapshot(ctx context.Context, snap *models.SatSnapshot) error
	// LatestSatSnapshot 读取接收机最近一条快照，无记录时返回 (nil, nil)
	LatestSatSnapshot(ctx context.Context, receiverID string) (*models.SatSnapshot, error)
}
