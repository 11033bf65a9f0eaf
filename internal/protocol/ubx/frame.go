package ubx

// 帧结构常量
const (
	Sync1 byte = 0xB5 // 同步字节1
	Sync2 byte = 0x62 // 同步字节2

	headerLen  = 6 // sync(2) + class(1) + id(1) + len(2,小端)
	trailerLen = 2 // ckA(1) + ckB(1)

	// MaxPayloadLen 长度字段为16位，载荷上限 65535 字节
	MaxPayloadLen = 0xFFFF
)

// 消息类别与编号
const (
	ClassNav byte = 0x01 // 导航结果
	ClassAck byte = 0x05 // 应答

	IDNavPosLLH byte = 0x02 // 大地坐标位置解
	IDNavSvInfo byte = 0x30 // 卫星通道信息
	IDNavSat    byte = 0x35 // 多星座卫星信息

	IDAckNak byte = 0x00
	IDAckAck byte = 0x01
)

// Frame 一帧完整的协议消息（头 + 载荷 + 校验）
// 校验对 (CkA, CkB) 覆盖 class、id、len(小端16位)、payload，不含同步字节。
// Frame 构造后不再修改：编码器产出待发送帧，解码器产出已验证的接收帧。
type Frame struct {
	Class   byte
	ID      byte
	Payload []byte
	CkA     byte
	CkB     byte
}

// Key 返回帧的路由键
func (f *Frame) Key() uint16 { return Key(f.Class, f.ID) }

// Is 判断帧是否为指定 class/id 的消息
func (f *Frame) Is(class, id byte) bool { return f.Class == class && f.ID == id }

// Key 组合 class/id 为路由键（class 高8位，id 低8位）
func Key(class, id byte) uint16 { return uint16(class)<<8 | uint16(id) }

// Sniff 初判前缀是否像本协议（以 0xB5 或完整同步对开头）
func Sniff(prefix []byte) bool {
	if len(prefix) == 0 || prefix[0] != Sync1 {
		return false
	}
	return len(prefix) == 1 || prefix[1] == Sync2
}
