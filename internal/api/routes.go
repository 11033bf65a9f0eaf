package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/gnss-gateway/internal/api/middleware"
)

// RegisterRoutes 注册 /api/v1 查询与控制路由
// 读接口开放，控制接口由 APIKeyAuth 保护。
func RegisterRoutes(r *gin.Engine, h *Handler, apiKey string, logger *zap.Logger) {
	if r == nil || h == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	v1 := r.Group("/api/v1")
	v1.GET("/receivers", h.ListReceivers)
	v1.GET("/receivers/:id/position", h.GetPosition)
	v1.GET("/receivers/:id/track", h.GetTrack)
	v1.GET("/receivers/:id/satellites", h.GetSatellites)

	protected := v1.Group("")
	protected.Use(middleware.APIKeyAuth(apiKey, logger))
	protected.POST("/receivers/:id/poll", h.RequestPoll)

	if apiKey == "" {
		logger.Warn("api key not configured, poll endpoint rejects all requests")
	}
	logger.Info("api routes registered", zap.Int("endpoints", 5))
}
