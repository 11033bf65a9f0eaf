package presence

import "time"

// Tracker 接收机在线状态跟踪，支持内存和Redis两种实现
type Tracker interface {
	// Touch 记录接收机最近一次收到帧的时间
	Touch(id string, t time.Time)

	// LastSeen 返回接收机最近活动时间
	LastSeen(id string) (time.Time, bool)

	// IsPresent 判断接收机是否在线
	IsPresent(id string, now time.Time) bool

	// PresentCount 返回当前在线接收机数量
	PresentCount(now time.Time) int

	// Snapshot 返回全部接收机的最近活动时间
	Snapshot() map[string]time.Time
}
