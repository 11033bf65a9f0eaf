package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/gnss-gateway/internal/storage/models"
)

// Repository 轨迹点数据面，热路径全部走原生 SQL
type Repository struct {
	Pool *pgxpool.Pool
}

// InsertTrackPoint 写入单个轨迹点
func (r *Repository) InsertTrackPoint(ctx context.Context, p *models.TrackPoint) error {
	const q = `INSERT INTO track_points
               (receiver_id, itow_ms, lon_e7, lat_e7, height_mm, hmsl_mm, h_acc_mm, v_acc_mm, received_at)
               VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.Pool.Exec(ctx, q,
		p.ReceiverID, p.ITowMs, p.LonE7, p.LatE7, p.HeightMm, p.HMSLMm, p.HAccMm, p.VAccMm, p.ReceivedAt)
	return err
}

// InsertTrackPoints 多行 VALUES 批量写入，返回写入行数
func (r *Repository) InsertTrackPoints(ctx context.Context, pts []models.TrackPoint) (int, error) {
	if len(pts) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO track_points
                    (receiver_id, itow_ms, lon_e7, lat_e7, height_mm, hmsl_mm, h_acc_mm, v_acc_mm, received_at)
                    VALUES `)
	args := make([]interface{}, 0, len(pts)*9)
	for i, p := range pts {
		if i > 0 {
			sb.WriteString(",")
		}
		base := i * 9
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9)
		args = append(args,
			p.ReceiverID, p.ITowMs, p.LonE7, p.LatE7, p.HeightMm, p.HMSLMm, p.HAccMm, p.VAccMm, p.ReceivedAt)
	}

	tag, err := r.Pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// LatestTrackPoint 返回接收机最近一个轨迹点，无记录时返回 (nil, nil)
func (r *Repository) LatestTrackPoint(ctx context.Context, receiverID string) (*models.TrackPoint, error) {
	const q = `SELECT id, receiver_id, itow_ms, lon_e7, lat_e7, height_mm, hmsl_mm, h_acc_mm, v_acc_mm, received_at, created_at
               FROM track_points
               WHERE receiver_id = $1
               ORDER BY received_at DESC
               LIMIT 1`
	var p models.TrackPoint
	err := r.Pool.QueryRow(ctx, q, receiverID).Scan(
		&p.ID, &p.ReceiverID, &p.ITowMs, &p.LonE7, &p.LatE7, &p.HeightMm, &p.HMSLMm, &p.HAccMm, &p.VAccMm, &p.ReceivedAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListTrackPoints 返回接收机最近的轨迹点，按时间倒序
func (r *Repository) ListTrackPoints(ctx context.Context, receiverID string, limit int) ([]models.TrackPoint, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT id, receiver_id, itow_ms, lon_e7, lat_e7, height_mm, hmsl_mm, h_acc_mm, v_acc_mm, received_at, created_at
               FROM track_points
               WHERE receiver_id = $1
               ORDER BY received_at DESC
               LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, receiverID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TrackPoint
	for rows.Next() {
		var p models.TrackPoint
		if err := rows.Scan(
			&p.ID, &p.ReceiverID, &p.ITowMs, &p.LonE7, &p.LatE7, &p.HeightMm, &p.HMSLMm, &p.HAccMm, &p.VAccMm, &p.ReceivedAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountTrackPoints 返回接收机轨迹点总数（管理/调试用）
func (r *Repository) CountTrackPoints(ctx context.Context, receiverID string) (int64, error) {
	const q = `SELECT COUNT(*) FROM track_points WHERE receiver_id = $1`
	var n int64
	err := r.Pool.QueryRow(ctx, q, receiverID).Scan(&n)
	return n, err
}
