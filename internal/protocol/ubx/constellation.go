package ubx

// Constellation 卫星所属导航系统
type Constellation uint8

const (
	ConstellationUnknown Constellation = iota
	ConstellationGPS
	ConstellationSBAS
	ConstellationGalileo
	ConstellationBeiDou
	ConstellationIMES
	ConstellationQZSS
	ConstellationGLONASS
)

var constellationNames = [...]string{
	"Unknown", "GPS", "SBAS", "Galileo", "BeiDou", "IMES", "QZSS", "GLONASS",
}

func (c Constellation) String() string {
	if int(c) < len(constellationNames) {
		return constellationNames[c]
	}
	return "Unknown"
}

// ConstellationFromSvID 按统一卫星编号划分星座（NAV-SVINFO 的 svid 口径）
// 1-32 GPS，33-64 北斗，65-96 GLONASS，120-158 SBAS，
// 159-163 北斗，193-197 QZSS，211-246 Galileo，255 为未知编号的 GLONASS。
func ConstellationFromSvID(svid byte) Constellation {
	switch {
	case svid >= 1 && svid <= 32:
		return ConstellationGPS
	case svid >= 33 && svid <= 64:
		return ConstellationBeiDou
	case svid >= 65 && svid <= 96:
		return ConstellationGLONASS
	case svid >= 120 && svid <= 158:
		return ConstellationSBAS
	case svid >= 159 && svid <= 163:
		return ConstellationBeiDou
	case svid >= 193 && svid <= 197:
		return ConstellationQZSS
	case svid >= 211 && svid <= 246:
		return ConstellationGalileo
	case svid == 255:
		return ConstellationGLONASS
	default:
		return ConstellationUnknown
	}
}

// ConstellationFromGnssID 按星座编号划分（NAV-SAT 的 gnssId 口径）
func ConstellationFromGnssID(gnssID byte) Constellation {
	switch gnssID {
	case 0:
		return ConstellationGPS
	case 1:
		return ConstellationSBAS
	case 2:
		return ConstellationGalileo
	case 3:
		return ConstellationBeiDou
	case 4:
		return ConstellationIMES
	case 5:
		return ConstellationQZSS
	case 6:
		return ConstellationGLONASS
	default:
		return ConstellationUnknown
	}
}
