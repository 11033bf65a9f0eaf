package ubx

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrChecksumMismatch 校验失败；解码侧可恢复，自动重新同步
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrPayloadTooLarge 声明长度超出配置的载荷上限；同样可恢复
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrInvalidSync 严格解析时输入不以同步字节开头
	ErrInvalidSync = errors.New("invalid sync bytes")
	// ErrTruncated 严格解析时输入不足一帧
	ErrTruncated = errors.New("truncated frame")
)

// DecoderState 流式解码器所处的解析阶段
type DecoderState uint8

const (
	StateSeekSync1 DecoderState = iota // 初始态：寻找 0xB5
	StateSeekSync2                     // 已见 0xB5，等待 0x62
	StateReadClass
	StateReadID
	StateReadLenLo
	StateReadLenHi
	StateReadPayload
	StateReadCkA
	StateReadCkB
)

var decoderStateNames = [...]string{
	"seek_sync1", "seek_sync2", "read_class", "read_id",
	"read_len_lo", "read_len_hi", "read_payload", "read_ck_a", "read_ck_b",
}

func (s DecoderState) String() string {
	if int(s) < len(decoderStateNames) {
		return decoderStateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Event 一次解码产物：完整帧或一次可恢复的帧错误，二者必居其一
type Event struct {
	Frame *Frame
	Err   error
}

// StreamDecoder 处理半包/粘包/噪声的流式解码器
// 按字节推进状态机：Feed 追加新到的字节，Poll 依次取出解码结果，
// 产物顺序与其末字节在输入流中的先后一致。输入耗尽时挂起当前半帧，
// 下一次 Feed 自动续上，已消费的字节不会被重复处理。
// 单流单持有者：一条字节流对应一个实例，不做并发保护。
type StreamDecoder struct {
	state   DecoderState
	class   byte
	id      byte
	lenLo   byte
	length  int
	payload []byte
	accA    byte // 运行中的校验累加器
	accB    byte
	ckA     byte // 接收到的第一个校验字节

	maxPayload int
	events     []Event
}

// NewStreamDecoder 创建流式解码器
// maxPayload 为声明长度的保护上限，避免畸形帧占用过多内存；
// <=0 表示只受16位长度字段本身约束。
func NewStreamDecoder(maxPayload int) *StreamDecoder {
	if maxPayload > MaxPayloadLen {
		maxPayload = MaxPayloadLen
	}
	return &StreamDecoder{maxPayload: maxPayload}
}

// Feed 追加新到达的字节并推进状态机，永不阻塞
func (d *StreamDecoder) Feed(p []byte) {
	for _, b := range p {
		d.step(b)
	}
}

// Poll 取出一个已完成的解码结果；无结果时第二个返回值为 false
func (d *StreamDecoder) Poll() (Event, bool) {
	if len(d.events) == 0 {
		return Event{}, false
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev, true
}

// State 返回当前解析阶段（诊断用）
func (d *StreamDecoder) State() DecoderState { return d.state }

// Reset 丢弃当前半帧与未取走的结果，回到初始态
func (d *StreamDecoder) Reset() {
	d.resync()
	d.events = nil
}

func (d *StreamDecoder) step(b byte) {
	switch d.state {
	case StateSeekSync1:
		// 帧前噪声静默丢弃
		if b == Sync1 {
			d.state = StateSeekSync2
		}
	case StateSeekSync2:
		switch b {
		case Sync2:
			d.state = StateReadClass
		case Sync1:
			// 连续 0xB5 视作新的同步候选，停留在本状态
		default:
			d.state = StateSeekSync1
		}
	case StateReadClass:
		d.class = b
		d.accumulate(b)
		d.state = StateReadID
	case StateReadID:
		d.id = b
		d.accumulate(b)
		d.state = StateReadLenLo
	case StateReadLenLo:
		d.lenLo = b
		d.accumulate(b)
		d.state = StateReadLenHi
	case StateReadLenHi:
		d.accumulate(b)
		d.length = int(binary.LittleEndian.Uint16([]byte{d.lenLo, b}))
		if d.maxPayload > 0 && d.length > d.maxPayload {
			d.emitErr(fmt.Errorf("%w: class=0x%02X id=0x%02X len=%d limit=%d",
				ErrPayloadTooLarge, d.class, d.id, d.length, d.maxPayload))
			d.resync()
			return
		}
		if d.length == 0 {
			d.state = StateReadCkA
		} else {
			d.payload = make([]byte, 0, d.length)
			d.state = StateReadPayload
		}
	case StateReadPayload:
		d.payload = append(d.payload, b)
		d.accumulate(b)
		if len(d.payload) == d.length {
			d.state = StateReadCkA
		}
	case StateReadCkA:
		d.ckA = b
		d.state = StateReadCkB
	case StateReadCkB:
		if d.ckA == d.accA && b == d.accB {
			d.emitFrame(&Frame{Class: d.class, ID: d.id, Payload: d.payload, CkA: d.ckA, CkB: b})
		} else {
			d.emitErr(fmt.Errorf("%w: class=0x%02X id=0x%02X want=%02X%02X got=%02X%02X",
				ErrChecksumMismatch, d.class, d.id, d.accA, d.accB, d.ckA, b))
		}
		d.resync()
	}
}

// accumulate 运行中的 Fletcher-8 累加，覆盖 class..payload
func (d *StreamDecoder) accumulate(b byte) {
	d.accA += b
	d.accB += d.accA
}

// resync 丢弃当前半帧，回到寻找同步态；已排队的结果保留
func (d *StreamDecoder) resync() {
	d.state = StateSeekSync1
	d.class, d.id, d.lenLo, d.ckA = 0, 0, 0, 0
	d.length = 0
	d.payload = nil
	d.accA, d.accB = 0, 0
}

func (d *StreamDecoder) emitFrame(f *Frame) { d.events = append(d.events, Event{Frame: f}) }

func (d *StreamDecoder) emitErr(err error) { d.events = append(d.events, Event{Err: err}) }

// Parse 严格解析一帧：输入必须以同步字节开头且完整包含整帧
// 流式路径用 StreamDecoder；Parse 供工具与回归用例使用。
func Parse(raw []byte) (*Frame, error) {
	if len(raw) < headerLen+trailerLen {
		return nil, ErrTruncated
	}
	if raw[0] != Sync1 || raw[1] != Sync2 {
		return nil, ErrInvalidSync
	}
	length := int(binary.LittleEndian.Uint16(raw[4:6]))
	end := headerLen + length
	if len(raw) < end+trailerLen {
		return nil, ErrTruncated
	}
	ckA, ckB := Checksum(raw[2:end])
	if raw[end] != ckA || raw[end+1] != ckB {
		return nil, fmt.Errorf("%w: class=0x%02X id=0x%02X", ErrChecksumMismatch, raw[2], raw[3])
	}
	payload := make([]byte, length)
	copy(payload, raw[headerLen:end])
	return &Frame{Class: raw[2], ID: raw[3], Payload: payload, CkA: ckA, CkB: ckB}, nil
}
