package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegisterHTTPRoutes 注册健康检查HTTP路由
// readiness 可为 nil，此时就绪只看聚合检查结果。
func RegisterHTTPRoutes(r *gin.Engine, aggregator *Aggregator, readiness *Readiness) {
	// Readiness 探针：启动门闩未齐或任一检查 Unhealthy 均未就绪
	r.GET("/health/ready", func(c *gin.Context) {
		if readiness != nil && !readiness.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "starting",
				"ready":  false,
			})
			return
		}
		if !aggregator.Ready(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"ready":  false,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"ready":  true,
		})
	})

	// Liveness 探针
	r.GET("/health/live", func(c *gin.Context) {
		if !aggregator.Alive() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"alive": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"alive": true})
	})

	// 详细健康报告；检查只跑一轮，总体状态从同一组结果归并
	r.GET("/health", func(c *gin.Context) {
		results := aggregator.CheckAll(c.Request.Context())
		overall := OverallFrom(results)

		code := http.StatusOK
		if overall == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		// Degraded 仍返回200，表示可以服务

		c.JSON(code, HealthReport{
			Status:    overall,
			Timestamp: time.Now(),
			Checks:    results,
		})
	})
}
