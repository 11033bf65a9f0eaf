package health

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/taoyao-code/gnss-gateway/internal/presence"
)

// ReceiversChecker 接收机在线状态检查
// 接收机掉线只降级不判死：网关本体仍可查询历史数据与响应运维指令。
// 离线判定窗口由 tracker 自身承载。
type ReceiversChecker struct {
	tracker  presence.Tracker
	expected []string
}

// NewReceiversChecker 创建接收机检查器
// expected 是配置里声明的接收机ID集合。
func NewReceiversChecker(tracker presence.Tracker, expected []string) *ReceiversChecker {
	return &ReceiversChecker{
		tracker:  tracker,
		expected: expected,
	}
}

func (c *ReceiversChecker) Name() string {
	return "receivers"
}

// Check 统计在线数量，列出离线的接收机
func (c *ReceiversChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	now := time.Now()

	if len(c.expected) == 0 {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "no receivers configured",
			Latency: time.Since(start),
		}
	}

	var offline []string
	online := 0
	for _, id := range c.expected {
		if c.tracker.IsPresent(id, now) {
			online++
		} else {
			offline = append(offline, id)
		}
	}
	sort.Strings(offline)

	status := StatusHealthy
	message := "ok"
	if len(offline) > 0 {
		status = StatusDegraded
		message = fmt.Sprintf("%d of %d receivers offline", len(offline), len(c.expected))
	}

	details := map[string]interface{}{
		"online":   online,
		"expected": len(c.expected),
	}
	if len(offline) > 0 {
		details["offline"] = offline
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: details,
		Latency: time.Since(start),
	}
}
