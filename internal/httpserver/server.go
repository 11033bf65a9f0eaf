package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
	"github.com/taoyao-code/gnss-gateway/internal/metrics"
)

// Server HTTP 服务封装
// 只管引擎与生命周期，业务路由由调用方通过 Register 挂接。
type Server struct {
	engine *gin.Engine
	srv    *http.Server
}

// New 创建并配置 Gin + HTTP Server
// env 为 prod 时切换 Release 模式关闭调试输出。
func New(cfg cfgpkg.HTTPConfig, env string, m *metrics.AppMetrics, logger *zap.Logger) *Server {
	if env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if logger != nil {
		r.Use(requestLogger(logger))
	}
	if m != nil {
		r.Use(requestMetrics(m))
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return &Server{engine: r, srv: srv}
}

// Register 挂接业务路由
func (s *Server) Register(fn func(r *gin.Engine)) {
	fn(s.engine)
}

// ServeMetrics 暴露 Prometheus 指标端点
func (s *Server) ServeMetrics(path string, handler http.Handler) {
	if path == "" {
		path = "/metrics"
	}
	s.engine.GET(path, gin.WrapH(handler))
}

// Handler 返回底层处理器（测试用）
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 启动 HTTP 服务（阻塞）
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// requestLogger 按状态码分级记录请求日志
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("http request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("http request", fields...)
		default:
			logger.Debug("http request", fields...)
		}
	}
}

// requestMetrics 上报请求计数与时延
// path 标签用路由模板而非原始URL，避免标签基数膨胀。
func requestMetrics(m *metrics.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
