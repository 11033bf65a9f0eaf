package models

import (
	"time"
)

// 注意：
// - 保持与 migrations/0001_init_up.sql 完全对齐
// - 不使用 gorm.Model，显式声明每个字段，避免隐式 DeletedAt

// Receiver 映射 receivers 表
type Receiver struct {
	// 主键
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// 配置中的接收机唯一标识
	ReceiverID string `gorm:"column:receiver_id;type:text;not null;uniqueIndex"`
	// 展示名与接入信息，可空
	Name      *string `gorm:"column:name;type:text"`
	Transport *string `gorm:"column:transport;type:text"`
	Device    *string `gorm:"column:device;type:text"`
	// 最近一次收到有效帧
	LastSeenAt *time.Time `gorm:"column:last_seen_at"`
	// 审计字段
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Receiver) TableName() string { return "receivers" }

// TrackPoint 映射 track_points 表。
// 坐标保留协议原始整数（1e-7 度 / 毫米），换算到度和米由读取方完成。
type TrackPoint struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ReceiverID string    `gorm:"column:receiver_id;type:text;not null;index:idx_track_receiver_time,priority:1"`
	ITowMs     int64     `gorm:"column:itow_ms;not null"`
	LonE7      int32     `gorm:"column:lon_e7;not null"`
	LatE7      int32     `gorm:"column:lat_e7;not null"`
	HeightMm   int32     `gorm:"column:height_mm;not null"`
	HMSLMm     int32     `gorm:"column:hmsl_mm;not null"`
	HAccMm     int64     `gorm:"column:h_acc_mm;not null"`
	VAccMm     int64     `gorm:"column:v_acc_mm;not null"`
	ReceivedAt time.Time `gorm:"column:received_at;not null;index:idx_track_receiver_time,priority:2,sort:desc"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (TrackPoint) TableName() string { return "track_points" }

// SatSnapshot 映射 sat_snapshots 表，卫星可见性快照
type SatSnapshot struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ReceiverID string `gorm:"column:receiver_id;type:text;not null;index:idx_sat_receiver_time,priority:1"`
	// 来源消息：svinfo 或 sat
	Message    string    `gorm:"column:message;type:text;not null"`
	ITowMs     int64     `gorm:"column:itow_ms;not null"`
	NumSvs     int32     `gorm:"column:num_svs;not null"`
	Svs        []byte    `gorm:"column:svs;type:jsonb"`
	ReceivedAt time.Time `gorm:"column:received_at;not null;index:idx_sat_receiver_time,priority:2,sort:desc"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (SatSnapshot) TableName() string { return "sat_snapshots" }
