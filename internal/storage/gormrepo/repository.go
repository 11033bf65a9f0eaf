package gormrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taoyao-code/gnss-gateway/internal/storage"
	"github.com/taoyao-code/gnss-gateway/internal/storage/models"
)

// Repository 基于 GORM 的 CoreRepo 实现。
// 使用 isTx 标记区分事务上下文，避免嵌套事务重复 Begin/Commit。
type Repository struct {
	db   *gorm.DB
	isTx bool
}

// New 返回一个使用给定 *gorm.DB 的 CoreRepo 实例。
func New(db *gorm.DB) storage.CoreRepo {
	return &Repository{db: db}
}

// WithTx 复用现有事务或开启新事务执行 fn。
func (r *Repository) WithTx(ctx context.Context, fn func(storage.CoreRepo) error) error {
	if r.isTx {
		return fn(r)
	}

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	child := &Repository{db: tx, isTx: true}
	if err := fn(child); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// EnsureReceiver 若接收机不存在则插入，存在则刷新 updated_at。
// 新插入的记录 last_seen_at 保持为空，收到首帧后由 TouchReceiverLastSeen 填充。
func (r *Repository) EnsureReceiver(ctx context.Context, receiverID string) (*models.Receiver, error) {
	record := &models.Receiver{
		ReceiverID: receiverID,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "receiver_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"updated_at": gorm.Expr("NOW()")}),
		}).
		Create(record).Error
	if err != nil {
		return nil, err
	}

	return r.GetReceiverByID(ctx, receiverID)
}

// TouchReceiverLastSeen 刷新接收机 last_seen_at（不存在则插入）。
func (r *Repository) TouchReceiverLastSeen(ctx context.Context, receiverID string, at time.Time) error {
	ts := at
	record := &models.Receiver{
		ReceiverID: receiverID,
		LastSeenAt: &ts,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "receiver_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"last_seen_at": gorm.Expr("excluded.last_seen_at"),
				"updated_at":   gorm.Expr("NOW()"),
			}),
		}).
		Create(record).Error
}

// GetReceiverByID 通过接收机标识查询，无记录时返回 (nil, nil)
func (r *Repository) GetReceiverByID(ctx context.Context, receiverID string) (*models.Receiver, error) {
	var rec models.Receiver
	err := r.db.WithContext(ctx).Where("receiver_id = ?", receiverID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListReceivers 分页返回接收机列表，按 id 倒序。
func (r *Repository) ListReceivers(ctx context.Context, limit, offset int) ([]models.Receiver, error) {
	var recs []models.Receiver
	q := r.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// RegisterReceiver 按配置登记接收机，冲突时更新名称与接入信息。
// 空字符串落库为 NULL。
func (r *Repository) RegisterReceiver(ctx context.Context, receiverID, name, transport, device string) error {
	record := &models.Receiver{
		ReceiverID: receiverID,
	}
	if name != "" {
		record.Name = &name
	}
	if transport != "" {
		record.Transport = &transport
	}
	if device != "" {
		record.Device = &device
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "receiver_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"name":       gorm.Expr("excluded.name"),
				"transport":  gorm.Expr("excluded.transport"),
				"device":     gorm.Expr("excluded.device"),
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).
		Create(record).Error
}

// InsertSatSnapshot 写入卫星可见性快照。
func (r *Repository) InsertSatSnapshot(ctx context.Context, snap *models.SatSnapshot) error {
	return r.db.WithContext(ctx).Create(snap).Error
}

// LatestSatSnapshot 返回接收机最近一条快照，无记录时返回 (nil, nil)
func (r *Repository) LatestSatSnapshot(ctx context.Context, receiverID string) (*models.SatSnapshot, error) {
	var snap models.SatSnapshot
	err := r.db.WithContext(ctx).
		Where("receiver_id = ?", receiverID).
		Order("received_at DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
