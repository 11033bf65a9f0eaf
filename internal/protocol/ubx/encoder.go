package ubx

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrOversizedPayload 载荷超出16位长度字段的上限
	ErrOversizedPayload = errors.New("oversized payload")
)

// Encode 构造一帧完整的待发送消息
// 布局：sync(2) + class(1) + id(1) + len(2,小端) + payload + ckA + ckB。
// 校验覆盖 class..payload，不含同步字节。相同输入产出相同字节串。
func Encode(class, id byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrOversizedPayload, len(payload))
	}
	buf := make([]byte, 0, headerLen+len(payload)+trailerLen)
	buf = append(buf, Sync1, Sync2, class, id)

	lenBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBytes, uint16(len(payload)))
	buf = append(buf, lenBytes...)

	buf = append(buf, payload...)

	ckA, ckB := Checksum(buf[2:])
	buf = append(buf, ckA, ckB)
	return buf, nil
}

// EncodeFrame 按帧字段重新序列化，校验重新计算
func EncodeFrame(f *Frame) ([]byte, error) {
	return Encode(f.Class, f.ID, f.Payload)
}

// EncodePoll 构造空载荷的轮询请求帧（固定8字节）
func EncodePoll(class, id byte) []byte {
	b, _ := Encode(class, id, nil)
	return b
}

// PollPosLLH 轮询 NAV-POSLLH 的请求帧
func PollPosLLH() []byte { return EncodePoll(ClassNav, IDNavPosLLH) }

// PollSvInfo 轮询 NAV-SVINFO 的请求帧
func PollSvInfo() []byte { return EncodePoll(ClassNav, IDNavSvInfo) }

// PollSat 轮询 NAV-SAT 的请求帧
func PollSat() []byte { return EncodePoll(ClassNav, IDNavSat) }
