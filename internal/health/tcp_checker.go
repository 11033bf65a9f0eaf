package health

import (
	"context"
	"fmt"
	"time"

	"github.com/taoyao-code/gnss-gateway/internal/tcpserver"
)

// TCPChecker 字节流接入服务健康检查
// 连接数吃紧只降级不判死：存量连接与 HTTP API 均不受影响。
type TCPChecker struct {
	server *tcpserver.Server
}

// NewTCPChecker 创建TCP接入检查器
func NewTCPChecker(server *tcpserver.Server) *TCPChecker {
	return &TCPChecker{server: server}
}

func (c *TCPChecker) Name() string {
	return "tcp_ingest"
}

// Check 根据连接许可占用判定状态
func (c *TCPChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	stats := c.server.Stats()
	status := StatusHealthy
	message := "ok"
	if stats.Limiter.Utilization > 0.8 {
		status = StatusDegraded
		message = "high connection usage"
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"active_connections": stats.Limiter.ActiveConnections,
			"max_connections":    stats.Limiter.MaxConnections,
			"accepted_total":     stats.Accepted,
			"rejected_total":     stats.Rejected,
			"utilization":        fmt.Sprintf("%.1f%%", stats.Limiter.Utilization*100),
		},
		Latency: time.Since(start),
	}
}
