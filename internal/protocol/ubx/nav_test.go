package ubx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func putPosLLH(iTow uint32, lon, lat, height, hMSL int32, hAcc, vAcc uint32) []byte {
	p := make([]byte, navPosLLHLen)
	binary.LittleEndian.PutUint32(p[0:4], iTow)
	binary.LittleEndian.PutUint32(p[4:8], uint32(lon))
	binary.LittleEndian.PutUint32(p[8:12], uint32(lat))
	binary.LittleEndian.PutUint32(p[12:16], uint32(height))
	binary.LittleEndian.PutUint32(p[16:20], uint32(hMSL))
	binary.LittleEndian.PutUint32(p[20:24], hAcc)
	binary.LittleEndian.PutUint32(p[24:28], vAcc)
	return p
}

func floatEq(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDecodeNavPosLLH_ZeroCoordinates(t *testing.T) {
	pos, err := DecodeNavPosLLH(make([]byte, navPosLLHLen))
	if err != nil {
		t.Fatalf("DecodeNavPosLLH() error = %v", err)
	}
	if pos.LonDeg() != 0.0 || pos.LatDeg() != 0.0 {
		t.Errorf("lon/lat = %v/%v, want 0.0/0.0", pos.LonDeg(), pos.LatDeg())
	}
}

func TestDecodeNavPosLLH_KnownVector(t *testing.T) {
	payload := putPosLLH(123456789, -739847460, 407127730, 10250, -3500, 2500, 4100)
	pos, err := DecodeNavPosLLH(payload)
	if err != nil {
		t.Fatalf("DecodeNavPosLLH() error = %v", err)
	}

	if pos.ITowMs != 123456789 {
		t.Errorf("ITowMs = %d", pos.ITowMs)
	}
	if pos.Lon != -739847460 || pos.Lat != 407127730 {
		t.Errorf("raw lon/lat = %d/%d", pos.Lon, pos.Lat)
	}
	if pos.Height != 10250 || pos.HMSL != -3500 {
		t.Errorf("raw height/hMSL = %d/%d", pos.Height, pos.HMSL)
	}
	if pos.HAcc != 2500 || pos.VAcc != 4100 {
		t.Errorf("raw hAcc/vAcc = %d/%d", pos.HAcc, pos.VAcc)
	}

	if !floatEq(pos.LonDeg(), -73.9847460) {
		t.Errorf("LonDeg() = %v", pos.LonDeg())
	}
	if !floatEq(pos.LatDeg(), 40.7127730) {
		t.Errorf("LatDeg() = %v", pos.LatDeg())
	}
	if !floatEq(pos.HeightM(), 10.25) || !floatEq(pos.HMSLM(), -3.5) {
		t.Errorf("HeightM/HMSLM = %v/%v", pos.HeightM(), pos.HMSLM())
	}
	if !floatEq(pos.HAccM(), 2.5) || !floatEq(pos.VAccM(), 4.1) {
		t.Errorf("HAccM/VAccM = %v/%v", pos.HAccM(), pos.VAccM())
	}
}

func TestDecodeNavPosLLH_LengthMismatch(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{name: "27字节", size: 27},
		{name: "29字节", size: 29},
		{name: "空载荷", size: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeNavPosLLH(make([]byte, tt.size))
			if !errors.Is(err, ErrPayloadLengthMismatch) {
				t.Errorf("DecodeNavPosLLH() error = %v, want ErrPayloadLengthMismatch", err)
			}
		})
	}
}

func TestNavPosLLH_EncodeRoundTrip(t *testing.T) {
	payload := putPosLLH(5000, -1, 1, -2, 2, 3, 4)
	pos, err := DecodeNavPosLLH(payload)
	if err != nil {
		t.Fatalf("DecodeNavPosLLH() error = %v", err)
	}
	if !bytes.Equal(pos.Encode(), payload) {
		t.Errorf("Encode() = % X, want % X", pos.Encode(), payload)
	}
}

func buildSvInfoPayload(t *testing.T, iTow uint32, globalFlags byte, chans []SvChannel) []byte {
	t.Helper()
	p := make([]byte, navBlockHeaderLen+len(chans)*navBlockLen)
	binary.LittleEndian.PutUint32(p[0:4], iTow)
	p[4] = byte(len(chans))
	p[5] = globalFlags
	for i, c := range chans {
		blk := p[navBlockHeaderLen+i*navBlockLen:]
		blk[0] = c.Chn
		blk[1] = c.SvID
		blk[2] = c.Flags
		blk[3] = c.Quality
		blk[4] = c.CNO
		blk[5] = byte(c.Elev)
		binary.LittleEndian.PutUint16(blk[6:8], uint16(c.Azim))
		binary.LittleEndian.PutUint32(blk[8:12], uint32(c.PrRes))
	}
	return p
}

func TestDecodeNavSvInfo(t *testing.T) {
	chans := []SvChannel{
		{Chn: 0, SvID: 5, Flags: 0x0D, Quality: 7, CNO: 45, Elev: 63, Azim: -120, PrRes: -300},
		{Chn: 1, SvID: 70, Flags: 0x04, Quality: 4, CNO: 38, Elev: 12, Azim: 301, PrRes: 150},
	}
	payload := buildSvInfoPayload(t, 1000, 0x04, chans)

	info, err := DecodeNavSvInfo(payload)
	if err != nil {
		t.Fatalf("DecodeNavSvInfo() error = %v", err)
	}
	if info.ITowMs != 1000 || info.NumCh != 2 || info.GlobalFlags != 0x04 {
		t.Fatalf("header = %+v", info)
	}
	if len(info.Channels) != 2 {
		t.Fatalf("channels = %d", len(info.Channels))
	}
	for i, want := range chans {
		if info.Channels[i] != want {
			t.Errorf("channel %d = %+v, want %+v", i, info.Channels[i], want)
		}
	}
	if got := info.Channels[0].Constellation(); got != ConstellationGPS {
		t.Errorf("channel 0 constellation = %v, want GPS", got)
	}
	if got := info.Channels[1].Constellation(); got != ConstellationGLONASS {
		t.Errorf("channel 1 constellation = %v, want GLONASS", got)
	}
}

func TestDecodeNavSvInfo_NoChannels(t *testing.T) {
	info, err := DecodeNavSvInfo(buildSvInfoPayload(t, 777, 0, nil))
	if err != nil {
		t.Fatalf("DecodeNavSvInfo() error = %v", err)
	}
	if info.NumCh != 0 || len(info.Channels) != 0 {
		t.Errorf("info = %+v", info)
	}
}

func TestDecodeNavSvInfo_ExtraTrailingBytes(t *testing.T) {
	// 接收机可能在声明的通道块后补齐保留字节，按声明数量解码即可
	payload := buildSvInfoPayload(t, 1, 0, []SvChannel{{SvID: 3}})
	payload = append(payload, 0x00, 0x00, 0x00, 0x00)
	info, err := DecodeNavSvInfo(payload)
	if err != nil {
		t.Fatalf("DecodeNavSvInfo() error = %v", err)
	}
	if len(info.Channels) != 1 {
		t.Errorf("channels = %d, want 1", len(info.Channels))
	}
}

func TestDecodeNavSvInfo_Truncated(t *testing.T) {
	full := buildSvInfoPayload(t, 1, 0, []SvChannel{{SvID: 1}, {SvID: 2}})

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "头部不足8字节", payload: full[:7]},
		{name: "通道块被截断", payload: full[:len(full)-1]},
		{name: "缺整个通道块", payload: full[:navBlockHeaderLen+navBlockLen]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeNavSvInfo(tt.payload); !errors.Is(err, ErrPayloadLengthMismatch) {
				t.Errorf("DecodeNavSvInfo() error = %v, want ErrPayloadLengthMismatch", err)
			}
		})
	}
}

func buildNavSatPayload(t *testing.T, iTow uint32, version byte, svs []SatInfo) []byte {
	t.Helper()
	p := make([]byte, navBlockHeaderLen+len(svs)*navBlockLen)
	binary.LittleEndian.PutUint32(p[0:4], iTow)
	p[4] = version
	p[5] = byte(len(svs))
	for i, s := range svs {
		blk := p[navBlockHeaderLen+i*navBlockLen:]
		blk[0] = s.GnssID
		blk[1] = s.SvID
		blk[2] = s.CNO
		blk[3] = s.Flags
		binary.LittleEndian.PutUint16(blk[4:6], uint16(s.Azim))
		blk[6] = byte(s.Elev)
		blk[7] = s.OrbitSource
	}
	return p
}

func TestDecodeNavSat(t *testing.T) {
	svs := []SatInfo{
		{GnssID: 0, SvID: 12, CNO: 44, Flags: 0x19, Azim: -45, Elev: 77, OrbitSource: 1},
		{GnssID: 2, SvID: 3, CNO: 30, Flags: 0x01, Azim: 359, Elev: -5, OrbitSource: 2},
	}
	payload := buildNavSatPayload(t, 2000, 1, svs)

	sat, err := DecodeNavSat(payload)
	if err != nil {
		t.Fatalf("DecodeNavSat() error = %v", err)
	}
	if sat.ITowMs != 2000 || sat.Version != 1 || sat.NumSvs != 2 {
		t.Fatalf("header = %+v", sat)
	}
	for i, want := range svs {
		if sat.Svs[i] != want {
			t.Errorf("sv %d = %+v, want %+v", i, sat.Svs[i], want)
		}
	}
	if got := sat.Svs[0].Constellation(); got != ConstellationGPS {
		t.Errorf("sv 0 constellation = %v, want GPS", got)
	}
	if got := sat.Svs[1].Constellation(); got != ConstellationGalileo {
		t.Errorf("sv 1 constellation = %v, want Galileo", got)
	}
}

func TestDecodeNavSat_Truncated(t *testing.T) {
	full := buildNavSatPayload(t, 1, 1, []SatInfo{{SvID: 1}})

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "头部不足8字节", payload: full[:5]},
		{name: "卫星块被截断", payload: full[:len(full)-3]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeNavSat(tt.payload); !errors.Is(err, ErrPayloadLengthMismatch) {
				t.Errorf("DecodeNavSat() error = %v, want ErrPayloadLengthMismatch", err)
			}
		})
	}
}
