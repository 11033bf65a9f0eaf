package ubx

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrPayloadLengthMismatch 载荷长度与消息定义不符
	ErrPayloadLengthMismatch = errors.New("payload length mismatch")
)

const (
	navPosLLHLen      = 28
	navBlockHeaderLen = 8  // NAV-SVINFO / NAV-SAT 公共头长度
	navBlockLen       = 12 // 两者的单星块长度相同
)

// NavPosLLH 大地坐标位置解（NAV-POSLLH, 0x01/0x02），定长28字节
// 原始字段保持整型精度以便精确往返，度/米换算由访问方法完成。
type NavPosLLH struct {
	ITowMs uint32 // GPS 周内时间，毫秒
	Lon    int32  // 经度，1e-7 度
	Lat    int32  // 纬度，1e-7 度
	Height int32  // 椭球高，毫米
	HMSL   int32  // 平均海平面高，毫米
	HAcc   uint32 // 水平精度估计，毫米
	VAcc   uint32 // 垂直精度估计，毫米
}

// DecodeNavPosLLH 解码 NAV-POSLLH 载荷
// 长度必须恰好28字节；字段按固定偏移做小端提取，不做数值合理性检查。
func DecodeNavPosLLH(payload []byte) (*NavPosLLH, error) {
	if len(payload) != navPosLLHLen {
		return nil, fmt.Errorf("%w: NAV-POSLLH want %d got %d",
			ErrPayloadLengthMismatch, navPosLLHLen, len(payload))
	}
	return &NavPosLLH{
		ITowMs: binary.LittleEndian.Uint32(payload[0:4]),
		Lon:    int32(binary.LittleEndian.Uint32(payload[4:8])),
		Lat:    int32(binary.LittleEndian.Uint32(payload[8:12])),
		Height: int32(binary.LittleEndian.Uint32(payload[12:16])),
		HMSL:   int32(binary.LittleEndian.Uint32(payload[16:20])),
		HAcc:   binary.LittleEndian.Uint32(payload[20:24]),
		VAcc:   binary.LittleEndian.Uint32(payload[24:28]),
	}, nil
}

// Encode 重新序列化为28字节载荷
func (p *NavPosLLH) Encode() []byte {
	buf := make([]byte, navPosLLHLen)
	binary.LittleEndian.PutUint32(buf[0:4], p.ITowMs)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.Lon))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(p.Lat))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(p.Height))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(p.HMSL))
	binary.LittleEndian.PutUint32(buf[20:24], p.HAcc)
	binary.LittleEndian.PutUint32(buf[24:28], p.VAcc)
	return buf
}

// LonDeg 经度，度
func (p *NavPosLLH) LonDeg() float64 { return float64(p.Lon) * 1e-7 }

// LatDeg 纬度，度
func (p *NavPosLLH) LatDeg() float64 { return float64(p.Lat) * 1e-7 }

// HeightM 椭球高，米
func (p *NavPosLLH) HeightM() float64 { return float64(p.Height) / 1000.0 }

// HMSLM 平均海平面高，米
func (p *NavPosLLH) HMSLM() float64 { return float64(p.HMSL) / 1000.0 }

// HAccM 水平精度估计，米
func (p *NavPosLLH) HAccM() float64 { return float64(p.HAcc) / 1000.0 }

// VAccM 垂直精度估计，米
func (p *NavPosLLH) VAccM() float64 { return float64(p.VAcc) / 1000.0 }

// SvChannel NAV-SVINFO 中单个跟踪通道的状态块
type SvChannel struct {
	Chn     byte  // 通道号
	SvID    byte  // 统一卫星编号
	Flags   byte
	Quality byte
	CNO     byte  // 载噪比，dBHz
	Elev    int8  // 仰角，度
	Azim    int16 // 方位角，度
	PrRes   int32 // 伪距残差，厘米
}

// Constellation 通道所跟踪卫星的星座归属
func (c SvChannel) Constellation() Constellation { return ConstellationFromSvID(c.SvID) }

// NavSvInfo 卫星通道信息（NAV-SVINFO, 0x01/0x30）
// 8字节头 + NumCh 个12字节通道块。
type NavSvInfo struct {
	ITowMs      uint32
	NumCh       byte
	GlobalFlags byte
	Channels    []SvChannel
}

// DecodeNavSvInfo 解码 NAV-SVINFO 载荷
// 头部不足或声明的通道块被截断都按长度不符处理。
func DecodeNavSvInfo(payload []byte) (*NavSvInfo, error) {
	if len(payload) < navBlockHeaderLen {
		return nil, fmt.Errorf("%w: NAV-SVINFO want >=%d got %d",
			ErrPayloadLengthMismatch, navBlockHeaderLen, len(payload))
	}
	info := &NavSvInfo{
		ITowMs:      binary.LittleEndian.Uint32(payload[0:4]),
		NumCh:       payload[4],
		GlobalFlags: payload[5],
	}
	want := navBlockHeaderLen + int(info.NumCh)*navBlockLen
	if len(payload) < want {
		return nil, fmt.Errorf("%w: NAV-SVINFO %d channels want %d got %d",
			ErrPayloadLengthMismatch, info.NumCh, want, len(payload))
	}
	info.Channels = make([]SvChannel, 0, info.NumCh)
	for i := 0; i < int(info.NumCh); i++ {
		blk := payload[navBlockHeaderLen+i*navBlockLen:]
		info.Channels = append(info.Channels, SvChannel{
			Chn:     blk[0],
			SvID:    blk[1],
			Flags:   blk[2],
			Quality: blk[3],
			CNO:     blk[4],
			Elev:    int8(blk[5]),
			Azim:    int16(binary.LittleEndian.Uint16(blk[6:8])),
			PrRes:   int32(binary.LittleEndian.Uint32(blk[8:12])),
		})
	}
	return info, nil
}

// SatInfo NAV-SAT 中单颗卫星的状态块
type SatInfo struct {
	GnssID      byte  // 星座编号
	SvID        byte  // 星座内卫星编号
	CNO         byte  // 载噪比，dBHz
	Flags       byte
	Azim        int16 // 方位角，度
	Elev        int8  // 仰角，度
	OrbitSource byte  // 轨道数据来源
}

// Constellation 卫星的星座归属
func (s SatInfo) Constellation() Constellation { return ConstellationFromGnssID(s.GnssID) }

// NavSat 多星座卫星信息（NAV-SAT, 0x01/0x35）
// 8字节头 + NumSvs 个12字节卫星块。
type NavSat struct {
	ITowMs  uint32
	Version byte
	NumSvs  byte
	Svs     []SatInfo
}

// DecodeNavSat 解码 NAV-SAT 载荷
func DecodeNavSat(payload []byte) (*NavSat, error) {
	if len(payload) < navBlockHeaderLen {
		return nil, fmt.Errorf("%w: NAV-SAT want >=%d got %d",
			ErrPayloadLengthMismatch, navBlockHeaderLen, len(payload))
	}
	sat := &NavSat{
		ITowMs:  binary.LittleEndian.Uint32(payload[0:4]),
		Version: payload[4],
		NumSvs:  payload[5],
	}
	want := navBlockHeaderLen + int(sat.NumSvs)*navBlockLen
	if len(payload) < want {
		return nil, fmt.Errorf("%w: NAV-SAT %d svs want %d got %d",
			ErrPayloadLengthMismatch, sat.NumSvs, want, len(payload))
	}
	sat.Svs = make([]SatInfo, 0, sat.NumSvs)
	for i := 0; i < int(sat.NumSvs); i++ {
		blk := payload[navBlockHeaderLen+i*navBlockLen:]
		sat.Svs = append(sat.Svs, SatInfo{
			GnssID:      blk[0],
			SvID:        blk[1],
			CNO:         blk[2],
			Flags:       blk[3],
			Azim:        int16(binary.LittleEndian.Uint16(blk[4:6])),
			Elev:        int8(blk[6]),
			OrbitSource: blk[7],
		})
	}
	return sat, nil
}
