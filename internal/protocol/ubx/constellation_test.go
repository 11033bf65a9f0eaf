package ubx

import "testing"

func TestConstellationFromSvID(t *testing.T) {
	tests := []struct {
		name string
		svid byte
		want Constellation
	}{
		{name: "0无效", svid: 0, want: ConstellationUnknown},
		{name: "GPS下界", svid: 1, want: ConstellationGPS},
		{name: "GPS上界", svid: 32, want: ConstellationGPS},
		{name: "北斗低段下界", svid: 33, want: ConstellationBeiDou},
		{name: "北斗低段上界", svid: 64, want: ConstellationBeiDou},
		{name: "GLONASS下界", svid: 65, want: ConstellationGLONASS},
		{name: "GLONASS上界", svid: 96, want: ConstellationGLONASS},
		{name: "97空洞", svid: 97, want: ConstellationUnknown},
		{name: "119空洞", svid: 119, want: ConstellationUnknown},
		{name: "SBAS下界", svid: 120, want: ConstellationSBAS},
		{name: "SBAS上界", svid: 158, want: ConstellationSBAS},
		{name: "北斗高段", svid: 159, want: ConstellationBeiDou},
		{name: "北斗高段上界", svid: 163, want: ConstellationBeiDou},
		{name: "164空洞", svid: 164, want: ConstellationUnknown},
		{name: "QZSS下界", svid: 193, want: ConstellationQZSS},
		{name: "QZSS上界", svid: 197, want: ConstellationQZSS},
		{name: "Galileo下界", svid: 211, want: ConstellationGalileo},
		{name: "Galileo上界", svid: 246, want: ConstellationGalileo},
		{name: "247空洞", svid: 247, want: ConstellationUnknown},
		{name: "无编号GLONASS", svid: 255, want: ConstellationGLONASS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConstellationFromSvID(tt.svid); got != tt.want {
				t.Errorf("ConstellationFromSvID(%d) = %v, want %v", tt.svid, got, tt.want)
			}
		})
	}
}

func TestConstellationFromGnssID(t *testing.T) {
	tests := []struct {
		gnssID byte
		want   Constellation
	}{
		{gnssID: 0, want: ConstellationGPS},
		{gnssID: 1, want: ConstellationSBAS},
		{gnssID: 2, want: ConstellationGalileo},
		{gnssID: 3, want: ConstellationBeiDou},
		{gnssID: 4, want: ConstellationIMES},
		{gnssID: 5, want: ConstellationQZSS},
		{gnssID: 6, want: ConstellationGLONASS},
		{gnssID: 7, want: ConstellationUnknown},
		{gnssID: 0xFF, want: ConstellationUnknown},
	}

	for _, tt := range tests {
		if got := ConstellationFromGnssID(tt.gnssID); got != tt.want {
			t.Errorf("ConstellationFromGnssID(%d) = %v, want %v", tt.gnssID, got, tt.want)
		}
	}
}

func TestConstellationString(t *testing.T) {
	if ConstellationGPS.String() != "GPS" {
		t.Errorf("GPS String() = %q", ConstellationGPS.String())
	}
	if ConstellationBeiDou.String() != "BeiDou" {
		t.Errorf("BeiDou String() = %q", ConstellationBeiDou.String())
	}
	if Constellation(200).String() != "Unknown" {
		t.Errorf("out-of-range String() = %q", Constellation(200).String())
	}
}
