package gateway

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/gnss-gateway/internal/metrics"
	"github.com/taoyao-code/gnss-gateway/internal/protocol/ubx"
	"github.com/taoyao-code/gnss-gateway/internal/push"
	"github.com/taoyao-code/gnss-gateway/internal/storage/models"
	redisstorage "github.com/taoyao-code/gnss-gateway/internal/storage/redis"
)

// FixCache 最近定位缓存写入端
type FixCache interface {
	SetLastFix(ctx context.Context, rec *redisstorage.FixRecord) error
}

// FixQueue 轨迹写入队列入队端
type FixQueue interface {
	Enqueue(ctx context.Context, rec *redisstorage.FixRecord) error
}

// TrackWriter 轨迹点直写端，未配置Redis时旁路队列
type TrackWriter interface {
	InsertTrackPoint(ctx context.Context, tp *models.TrackPoint) error
}

// SnapshotWriter 卫星快照写入端
type SnapshotWriter interface {
	InsertSatSnapshot(ctx context.Context, snap *models.SatSnapshot) error
}

// Pipeline 把解码后的导航帧落到缓存、队列、库表与外推通道。
// 任何下游都可以缺省，未配置的环节直接跳过；下游写失败只记录，
// 不中断字节流的继续解码。
type Pipeline struct {
	cache      FixCache
	queue      FixQueue
	track      TrackWriter
	snapshot   SnapshotWriter
	pusher     *push.Pusher
	names      *ubx.Names
	logger     *zap.Logger
	appMetrics *metrics.AppMetrics
}

// NewPipeline 创建落地管线
func NewPipeline(cache FixCache, queue FixQueue, track TrackWriter, snapshot SnapshotWriter,
	pusher *push.Pusher, names *ubx.Names, m *metrics.AppMetrics, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if names == nil {
		names = ubx.DefaultNames()
	}
	return &Pipeline{
		cache:      cache,
		queue:      queue,
		track:      track,
		snapshot:   snapshot,
		pusher:     pusher,
		names:      names,
		logger:     logger,
		appMetrics: m,
	}
}

// Register 挂接全部导航与应答消息的处理器
func (p *Pipeline) Register(table *ubx.Table) {
	table.Register(ubx.ClassNav, ubx.IDNavPosLLH, p.HandlePosLLH)
	table.Register(ubx.ClassNav, ubx.IDNavSvInfo, p.HandleSvInfo)
	table.Register(ubx.ClassNav, ubx.IDNavSat, p.HandleSat)
	table.Register(ubx.ClassAck, ubx.IDAckAck, p.handleAck)
	table.Register(ubx.ClassAck, ubx.IDAckNak, p.handleAck)
}

// HandlePosLLH 定位解：写缓存、入队（或直写库）、外推事件
func (p *Pipeline) HandlePosLLH(ctx context.Context, src string, f *ubx.Frame) error {
	pos, err := ubx.DecodeNavPosLLH(f.Payload)
	if err != nil {
		return err
	}

	rec := &redisstorage.FixRecord{
		ReceiverID: src,
		ITowMs:     pos.ITowMs,
		LonE7:      pos.Lon,
		LatE7:      pos.Lat,
		HeightMm:   pos.Height,
		HMSLMm:     pos.HMSL,
		HAccMm:     pos.HAcc,
		VAccMm:     pos.VAcc,
		ReceivedAt: time.Now(),
	}

	if p.cache != nil {
		if err := p.cache.SetLastFix(ctx, rec); err != nil {
			p.logger.Warn("last fix cache write failed",
				zap.String("receiver_id", src), zap.Error(err))
		}
	}

	switch {
	case p.queue != nil:
		if err := p.queue.Enqueue(ctx, rec); err != nil {
			p.logger.Warn("track queue enqueue failed",
				zap.String("receiver_id", src), zap.Error(err))
		}
	case p.track != nil:
		tp := rec.TrackPoint()
		if err := p.track.InsertTrackPoint(ctx, &tp); err != nil {
			p.logger.Warn("track point insert failed",
				zap.String("receiver_id", src), zap.Error(err))
		} else if p.appMetrics != nil {
			p.appMetrics.TrackPointsWritten.Inc()
		}
	}

	if p.pusher != nil {
		data := (&push.FixData{
			ITowMs:  pos.ITowMs,
			LonDeg:  pos.LonDeg(),
			LatDeg:  pos.LatDeg(),
			HeightM: pos.HeightM(),
			HMSLM:   pos.HMSLM(),
			HAccM:   pos.HAccM(),
			VAccM:   pos.VAccM(),
		}).ToMap()
		p.pusher.Publish(push.NewEvent(push.EventFix, src, data))
	}
	return nil
}

// HandleSvInfo 卫星通道信息：存快照、外推事件
func (p *Pipeline) HandleSvInfo(ctx context.Context, src string, f *ubx.Frame) error {
	info, err := ubx.DecodeNavSvInfo(f.Payload)
	if err != nil {
		return err
	}

	entries := make([]push.SatEntry, 0, len(info.Channels))
	for _, ch := range info.Channels {
		entries = append(entries, push.SatEntry{
			SvID:          int(ch.SvID),
			Constellation: ch.Constellation().String(),
			CNO:           int(ch.CNO),
			ElevDeg:       int(ch.Elev),
			AzimDeg:       int(ch.Azim),
		})
	}
	p.storeSnapshot(ctx, src, "svinfo", info.ITowMs, entries)
	p.publishSats(src, "svinfo", info.ITowMs, entries)
	return nil
}

// HandleSat 多星座卫星信息：存快照、外推事件
func (p *Pipeline) HandleSat(ctx context.Context, src string, f *ubx.Frame) error {
	sat, err := ubx.DecodeNavSat(f.Payload)
	if err != nil {
		return err
	}

	entries := make([]push.SatEntry, 0, len(sat.Svs))
	for _, sv := range sat.Svs {
		entries = append(entries, push.SatEntry{
			SvID:          int(sv.SvID),
			Constellation: sv.Constellation().String(),
			CNO:           int(sv.CNO),
			ElevDeg:       int(sv.Elev),
			AzimDeg:       int(sv.Azim),
		})
	}
	p.storeSnapshot(ctx, src, "sat", sat.ITowMs, entries)
	p.publishSats(src, "sat", sat.ITowMs, entries)
	return nil
}

func (p *Pipeline) storeSnapshot(ctx context.Context, src, message string, itow uint32, svs []push.SatEntry) {
	if p.snapshot == nil {
		return
	}
	raw, err := json.Marshal(svs)
	if err != nil {
		p.logger.Error("marshal satellite snapshot failed",
			zap.String("receiver_id", src), zap.Error(err))
		return
	}
	snap := &models.SatSnapshot{
		ReceiverID: src,
		Message:    message,
		ITowMs:     int64(itow),
		NumSvs:     int32(len(svs)),
		Svs:        raw,
		ReceivedAt: time.Now(),
	}
	if err := p.snapshot.InsertSatSnapshot(ctx, snap); err != nil {
		p.logger.Warn("satellite snapshot insert failed",
			zap.String("receiver_id", src), zap.Error(err))
	}
}

func (p *Pipeline) publishSats(src, message string, itow uint32, svs []push.SatEntry) {
	if p.pusher == nil {
		return
	}
	data := (&push.SatellitesData{
		Message: message,
		ITowMs:  itow,
		NumSvs:  len(svs),
		Svs:     svs,
	}).ToMap()
	p.pusher.Publish(push.NewEvent(push.EventSatellites, src, data))
}

// handleAck 应答帧只记日志；载荷前两字节是被应答消息的 class/id
func (p *Pipeline) handleAck(ctx context.Context, src string, f *ubx.Frame) error {
	result := "ack"
	if f.ID == ubx.IDAckNak {
		result = "nak"
	}
	fields := []zap.Field{
		zap.String("receiver_id", src),
		zap.String("result", result),
	}
	if len(f.Payload) >= 2 {
		fields = append(fields, zap.String("msg", p.names.Name(f.Payload[0], f.Payload[1])))
	}
	p.logger.Debug("acknowledgement received", fields...)
	return nil
}
