package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
	"github.com/taoyao-code/gnss-gateway/internal/httpserver"
	"github.com/taoyao-code/gnss-gateway/internal/metrics"
)

// NewHTTPServer 根据配置创建 HTTP 服务器
func NewHTTPServer(cfg cfgpkg.HTTPConfig, env string, m *metrics.AppMetrics, logger *zap.Logger) *httpserver.Server {
	return httpserver.New(cfg, env, m, logger)
}
