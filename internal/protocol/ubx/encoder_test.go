package ubx

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		class   byte
		id      byte
		payload []byte
		want    []byte
	}{
		{
			name:    "空载荷轮询帧",
			class:   0x01,
			id:      0x02,
			payload: nil,
			want:    []byte{0xB5, 0x62, 0x01, 0x02, 0x00, 0x00, 0x03, 0x0A},
		},
		{
			name:    "两字节载荷",
			class:   0x01,
			id:      0x02,
			payload: []byte{0x01, 0x02},
			want:    []byte{0xB5, 0x62, 0x01, 0x02, 0x02, 0x00, 0x01, 0x02, 0x08, 0x1C},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.class, tt.id, tt.payload)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode() = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestEncode_ChecksumDomain(t *testing.T) {
	// 校验覆盖 class..payload，不含同步字节与校验本身
	raw, err := Encode(0x05, 0x01, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	body := raw[2 : len(raw)-2]
	if !VerifyChecksum(body, raw[len(raw)-2], raw[len(raw)-1]) {
		t.Fatalf("checksum does not verify over class..payload")
	}
}

func TestEncode_MaxPayload(t *testing.T) {
	payload := make([]byte, MaxPayloadLen)
	raw, err := Encode(0x01, 0x02, payload)
	if err != nil {
		t.Fatalf("Encode() error at max length: %v", err)
	}
	if raw[4] != 0xFF || raw[5] != 0xFF {
		t.Fatalf("length bytes = %02X %02X, want FF FF", raw[4], raw[5])
	}
	if len(raw) != headerLen+MaxPayloadLen+trailerLen {
		t.Fatalf("frame length = %d", len(raw))
	}
}

func TestEncode_OversizedPayload(t *testing.T) {
	payload := make([]byte, MaxPayloadLen+1)
	_, err := Encode(0x01, 0x02, payload)
	if !errors.Is(err, ErrOversizedPayload) {
		t.Fatalf("Encode() error = %v, want ErrOversizedPayload", err)
	}
}

func TestEncodePoll(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{
			name: "NAV-POSLLH",
			got:  PollPosLLH(),
			want: []byte{0xB5, 0x62, 0x01, 0x02, 0x00, 0x00, 0x03, 0x0A},
		},
		{
			name: "NAV-SVINFO",
			got:  PollSvInfo(),
			want: []byte{0xB5, 0x62, 0x01, 0x30, 0x00, 0x00, 0x31, 0x94},
		},
		{
			name: "NAV-SAT",
			got:  PollSat(),
			want: []byte{0xB5, 0x62, 0x01, 0x35, 0x00, 0x00, 0x36, 0xA3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !bytes.Equal(tt.got, tt.want) {
				t.Errorf("poll frame = % X, want % X", tt.got, tt.want)
			}
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	f := &Frame{Class: 0x01, ID: 0x30, Payload: []byte{0x11, 0x22}}
	got, err := EncodeFrame(f)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	want, _ := Encode(0x01, 0x30, []byte{0x11, 0x22})
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeFrame() = % X, want % X", got, want)
	}
}
