package push

import (
	"time"

	"github.com/google/uuid"
)

// EventType 事件类型
type EventType string

const (
	// EventFix 新定位事件
	EventFix EventType = "receiver.fix"

	// EventSatellites 卫星可见性事件
	EventSatellites EventType = "receiver.satellites"
)

// Event 外推事件结构
type Event struct {
	EventID    string                 `json:"event_id"`    // 事件唯一ID
	EventType  EventType              `json:"event_type"`  // 事件类型
	ReceiverID string                 `json:"receiver_id"` // 接收机标识
	Timestamp  int64                  `json:"timestamp"`   // 事件时间戳（Unix秒）
	Data       map[string]interface{} `json:"data"`        // 具体事件数据
}

// NewEvent 创建外推事件
func NewEvent(eventType EventType, receiverID string, data map[string]interface{}) *Event {
	return &Event{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		ReceiverID: receiverID,
		Timestamp:  time.Now().Unix(),
		Data:       data,
	}
}

// FixData 定位事件数据，度和米
type FixData struct {
	ITowMs  uint32  `json:"itow_ms"`
	LonDeg  float64 `json:"lon_deg"`
	LatDeg  float64 `json:"lat_deg"`
	HeightM float64 `json:"height_m"`
	HMSLM   float64 `json:"hmsl_m"`
	HAccM   float64 `json:"h_acc_m"`
	VAccM   float64 `json:"v_acc_m"`
}

func (d *FixData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"itow_ms":  d.ITowMs,
		"lon_deg":  d.LonDeg,
		"lat_deg":  d.LatDeg,
		"height_m": d.HeightM,
		"hmsl_m":   d.HMSLM,
		"h_acc_m":  d.HAccM,
		"v_acc_m":  d.VAccM,
	}
}

// SatEntry 单颗卫星
type SatEntry struct {
	SvID          int    `json:"sv_id"`
	Constellation string `json:"constellation"`
	CNO           int    `json:"cno"`
	ElevDeg       int    `json:"elev_deg"`
	AzimDeg       int    `json:"azim_deg"`
}

// SatellitesData 卫星可见性事件数据
type SatellitesData struct {
	Message string     `json:"message"` // svinfo | sat
	ITowMs  uint32     `json:"itow_ms"`
	NumSvs  int        `json:"num_svs"`
	Svs     []SatEntry `json:"svs"`
}

func (d *SatellitesData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"message": d.Message,
		"itow_ms": d.ITowMs,
		"num_svs": d.NumSvs,
		"svs":     d.Svs,
	}
}
