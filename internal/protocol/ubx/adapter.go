package ubx

import (
	"context"

	"go.uber.org/zap"
)

// AdapterStats 适配器累计计数
type AdapterStats struct {
	Bytes  uint64
	Frames uint64
	Errors uint64
}

// Adapter 绑定一条字节流的解码与路由
// 每条流一个实例（内含独占的 StreamDecoder）。解码错误可恢复：
// 记录、计数后继续处理后续字节；处理器错误同样不中断流。
type Adapter struct {
	dec   *StreamDecoder
	table *Table
	names *Names
	log   *zap.Logger

	// OnFrame/OnDecodeError 可选回调（指标上报），须在处理字节前设置
	OnFrame       func(f *Frame)
	OnDecodeError func(err error)

	stats AdapterStats
}

// NewAdapter 创建流适配器；maxPayload<=0 表示不限制载荷长度
func NewAdapter(table *Table, names *Names, maxPayload int, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		dec:   NewStreamDecoder(maxPayload),
		table: table,
		names: names,
		log:   log,
	}
}

// ProcessBytes 处理新到的原始字节：推进解码并路由完整帧
// 返回本次分发的帧数；仅在上下文取消时返回错误。
func (a *Adapter) ProcessBytes(ctx context.Context, src string, p []byte) (int, error) {
	a.dec.Feed(p)
	a.stats.Bytes += uint64(len(p))

	dispatched := 0
	for {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}
		ev, ok := a.dec.Poll()
		if !ok {
			return dispatched, nil
		}
		if ev.Err != nil {
			a.stats.Errors++
			a.log.Warn("frame decode failed", zap.String("src", src), zap.Error(ev.Err))
			if a.OnDecodeError != nil {
				a.OnDecodeError(ev.Err)
			}
			continue
		}
		f := ev.Frame
		a.stats.Frames++
		if a.OnFrame != nil {
			a.OnFrame(f)
		}
		if err := a.table.Route(ctx, src, f); err != nil {
			a.log.Error("frame handler failed",
				zap.String("src", src),
				zap.String("msg", a.names.Name(f.Class, f.ID)),
				zap.Error(err))
			continue
		}
		dispatched++
	}
}

// Stats 返回累计计数快照
func (a *Adapter) Stats() AdapterStats { return a.stats }

// Decoder 暴露内部解码器（诊断用）
func (a *Adapter) Decoder() *StreamDecoder { return a.dec }
