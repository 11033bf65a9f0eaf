// Package api 提供网关的REST查询与控制接口
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
	"github.com/taoyao-code/gnss-gateway/internal/poller"
	"github.com/taoyao-code/gnss-gateway/internal/presence"
	"github.com/taoyao-code/gnss-gateway/internal/storage/models"
	redisstorage "github.com/taoyao-code/gnss-gateway/internal/storage/redis"
)

const (
	defaultTrackLimit = 100
	maxTrackLimit     = 1000
)

// FixReader 最近定位缓存读取
type FixReader interface {
	GetLastFix(ctx context.Context, receiverID string) (*redisstorage.FixRecord, error)
}

// TrackReader 轨迹点持久层读取
type TrackReader interface {
	LatestTrackPoint(ctx context.Context, receiverID string) (*models.TrackPoint, error)
	ListTrackPoints(ctx context.Context, receiverID string, limit int) ([]models.TrackPoint, error)
}

// SnapshotReader 卫星快照读取
type SnapshotReader interface {
	LatestSatSnapshot(ctx context.Context, receiverID string) (*models.SatSnapshot, error)
}

// Poller 主动轮询入口
type Poller interface {
	RequestPoll(receiverID, message string) error
}

// Handler REST 查询与控制处理器
// fixes/tracks/snapshots/poller 允许为空，对应未启用的组件返回503。
type Handler struct {
	receivers []cfgpkg.ReceiverConfig
	fixes     FixReader
	tracks    TrackReader
	snapshots SnapshotReader
	poller    Poller
	tracker   presence.Tracker
	logger    *zap.Logger
}

// NewHandler 创建API处理器
func NewHandler(receivers []cfgpkg.ReceiverConfig, fixes FixReader, tracks TrackReader,
	snapshots SnapshotReader, p Poller, tracker presence.Tracker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		receivers: receivers,
		fixes:     fixes,
		tracks:    tracks,
		snapshots: snapshots,
		poller:    p,
		tracker:   tracker,
		logger:    logger,
	}
}

// receiverInfo 接收机列表项
type receiverInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Transport string     `json:"transport,omitempty"`
	Online    bool       `json:"online"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
}

// ListReceivers 查询接收机列表
// 合并配置中声明的接收机与在线跟踪到的动态来源（TCP接入）。
func (h *Handler) ListReceivers(c *gin.Context) {
	now := time.Now()
	seen := make(map[string]bool, len(h.receivers))
	items := make([]receiverInfo, 0, len(h.receivers))

	for _, rc := range h.receivers {
		info := receiverInfo{ID: rc.ID, Name: rc.Name, Transport: rc.Transport}
		if h.tracker != nil {
			if ts, ok := h.tracker.LastSeen(rc.ID); ok {
				t := ts
				info.LastSeen = &t
			}
			info.Online = h.tracker.IsPresent(rc.ID, now)
		}
		items = append(items, info)
		seen[rc.ID] = true
	}

	if h.tracker != nil {
		for id, ts := range h.tracker.Snapshot() {
			if seen[id] {
				continue
			}
			t := ts
			info := receiverInfo{ID: id, Online: h.tracker.IsPresent(id, now), LastSeen: &t}
			if strings.HasPrefix(id, "tcp:") {
				info.Transport = "tcp"
			}
			items = append(items, info)
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	c.JSON(http.StatusOK, gin.H{"receivers": items, "count": len(items)})
}

// positionResponse 对外暴露换算后的度和米
type positionResponse struct {
	ReceiverID string    `json:"receiver_id"`
	ITowMs     int64     `json:"itow_ms"`
	LonDeg     float64   `json:"lon_deg"`
	LatDeg     float64   `json:"lat_deg"`
	HeightM    float64   `json:"height_m"`
	HMSLM      float64   `json:"hmsl_m"`
	HAccM      float64   `json:"h_acc_m"`
	VAccM      float64   `json:"v_acc_m"`
	ReceivedAt time.Time `json:"received_at"`
	Source     string    `json:"source"`
}

func positionFromFix(rec *redisstorage.FixRecord) positionResponse {
	return positionResponse{
		ReceiverID: rec.ReceiverID,
		ITowMs:     int64(rec.ITowMs),
		LonDeg:     float64(rec.LonE7) * 1e-7,
		LatDeg:     float64(rec.LatE7) * 1e-7,
		HeightM:    float64(rec.HeightMm) / 1000,
		HMSLM:      float64(rec.HMSLMm) / 1000,
		HAccM:      float64(rec.HAccMm) / 1000,
		VAccM:      float64(rec.VAccMm) / 1000,
		ReceivedAt: rec.ReceivedAt,
		Source:     "cache",
	}
}

func positionFromTrackPoint(tp *models.TrackPoint) positionResponse {
	return positionResponse{
		ReceiverID: tp.ReceiverID,
		ITowMs:     tp.ITowMs,
		LonDeg:     float64(tp.LonE7) * 1e-7,
		LatDeg:     float64(tp.LatE7) * 1e-7,
		HeightM:    float64(tp.HeightMm) / 1000,
		HMSLM:      float64(tp.HMSLMm) / 1000,
		HAccM:      float64(tp.HAccMm) / 1000,
		VAccM:      float64(tp.VAccMm) / 1000,
		ReceivedAt: tp.ReceivedAt,
		Source:     "database",
	}
}

// GetPosition 查询接收机最近定位
// 优先读缓存，未命中或缓存不可用时回退数据库。
func (h *Handler) GetPosition(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if h.fixes != nil {
		rec, err := h.fixes.GetLastFix(ctx, id)
		if err != nil {
			h.logger.Warn("last fix cache read failed",
				zap.String("receiver_id", id), zap.Error(err))
		} else if rec != nil {
			c.JSON(http.StatusOK, positionFromFix(rec))
			return
		}
	}

	if h.tracks == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not available"})
		return
	}
	tp, err := h.tracks.LatestTrackPoint(ctx, id)
	if err != nil {
		h.logger.Error("latest track point query failed",
			zap.String("receiver_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if tp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no position available"})
		return
	}
	c.JSON(http.StatusOK, positionFromTrackPoint(tp))
}

// trackPointResponse 轨迹列表项
type trackPointResponse struct {
	ITowMs     int64     `json:"itow_ms"`
	LonDeg     float64   `json:"lon_deg"`
	LatDeg     float64   `json:"lat_deg"`
	HeightM    float64   `json:"height_m"`
	HMSLM      float64   `json:"hmsl_m"`
	HAccM      float64   `json:"h_acc_m"`
	VAccM      float64   `json:"v_acc_m"`
	ReceivedAt time.Time `json:"received_at"`
}

// GetTrack 查询接收机最近轨迹，按时间倒序
func (h *Handler) GetTrack(c *gin.Context) {
	if h.tracks == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not available"})
		return
	}
	id := c.Param("id")

	limit := defaultTrackLimit
	if v := c.Query("limit"); v != "" {
		vv, err := strconv.Atoi(v)
		if err != nil || vv <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = vv
	}
	if limit > maxTrackLimit {
		limit = maxTrackLimit
	}

	pts, err := h.tracks.ListTrackPoints(c.Request.Context(), id, limit)
	if err != nil {
		h.logger.Error("track query failed",
			zap.String("receiver_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	// 初始化为空数组，避免JSON序列化为null
	points := make([]trackPointResponse, 0, len(pts))
	for i := range pts {
		tp := &pts[i]
		points = append(points, trackPointResponse{
			ITowMs:     tp.ITowMs,
			LonDeg:     float64(tp.LonE7) * 1e-7,
			LatDeg:     float64(tp.LatE7) * 1e-7,
			HeightM:    float64(tp.HeightMm) / 1000,
			HMSLM:      float64(tp.HMSLMm) / 1000,
			HAccM:      float64(tp.HAccMm) / 1000,
			VAccM:      float64(tp.VAccMm) / 1000,
			ReceivedAt: tp.ReceivedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"receiver_id": id, "count": len(points), "points": points})
}

// GetSatellites 查询接收机最近卫星可见性快照
func (h *Handler) GetSatellites(c *gin.Context) {
	if h.snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not available"})
		return
	}
	id := c.Param("id")

	snap, err := h.snapshots.LatestSatSnapshot(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("satellite snapshot query failed",
			zap.String("receiver_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no satellite snapshot available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"receiver_id": snap.ReceiverID,
		"message":     snap.Message,
		"itow_ms":     snap.ITowMs,
		"num_svs":     snap.NumSvs,
		"satellites":  json.RawMessage(snap.Svs),
		"received_at": snap.ReceivedAt,
	})
}

// pollRequestBody 主动轮询请求体
type pollRequestBody struct {
	Message string `json:"message" binding:"required"`
}

// RequestPoll 对串口接收机发起一次主动轮询
func (h *Handler) RequestPoll(c *gin.Context) {
	if h.poller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "polling not available"})
		return
	}
	id := c.Param("id")

	var req pollRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.poller.RequestPoll(id, req.Message)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{
			"status":      "queued",
			"receiver_id": id,
			"message":     req.Message,
		})
	case errors.Is(err, poller.ErrReceiverNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "receiver not found"})
	case errors.Is(err, poller.ErrUnknownMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown message name"})
	default:
		h.logger.Warn("poll request rejected",
			zap.String("receiver_id", id),
			zap.String("message", req.Message),
			zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	}
}
