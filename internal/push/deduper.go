package push

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// Deduper 抑制窗口期内内容完全相同的连续事件。
// 静止的接收机每秒产生同一坐标的定位事件，没有必要重复外推。
type Deduper struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]dedupEntry // receiverID + "/" + eventType -> entry
}

type dedupEntry struct {
	fingerprint string
	at          time.Time
}

// NewDeduper 创建去重器，window<=0 时关闭去重
func NewDeduper(window time.Duration) *Deduper {
	return &Deduper{
		window: window,
		last:   make(map[string]dedupEntry),
	}
}

// IsDuplicate 判断事件数据与上一事件相同且仍在窗口内，并记录本次事件
func (d *Deduper) IsDuplicate(ev *Event, now time.Time) bool {
	if d == nil || d.window <= 0 {
		return false
	}

	key := ev.ReceiverID + "/" + string(ev.EventType)
	fp := fingerprint(ev.Data)

	d.mu.Lock()
	defer d.mu.Unlock()

	prev, ok := d.last[key]
	d.last[key] = dedupEntry{fingerprint: fp, at: now}
	if !ok {
		return false
	}
	return prev.fingerprint == fp && now.Sub(prev.at) <= d.window
}

// fingerprint 对事件数据取稳定指纹，map 序列化按键名排序
func fingerprint(data map[string]interface{}) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
