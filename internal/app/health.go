package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
	"github.com/taoyao-code/gnss-gateway/internal/health"
	"github.com/taoyao-code/gnss-gateway/internal/presence"
	"github.com/taoyao-code/gnss-gateway/internal/tcpserver"
)

// NewHealthAggregator 创建健康检查聚合器
// 数据库未配置时不挂数据库检查器，其余检查器由启动流程按组件可用性追加。
func NewHealthAggregator(checkTimeout time.Duration, dbpool *pgxpool.Pool) *health.Aggregator {
	agg := health.NewAggregator(checkTimeout)
	if dbpool != nil {
		agg.AddChecker(health.NewDatabaseChecker(dbpool))
	}
	return agg
}

// RegisterHealthRoutes 注册健康检查HTTP路由
func RegisterHealthRoutes(r *gin.Engine, aggregator *health.Aggregator, ready *health.Readiness) {
	health.RegisterHTTPRoutes(r, aggregator, ready)
}

// AddTCPChecker 添加TCP接入检查器到聚合器
func AddTCPChecker(aggregator *health.Aggregator, srv *tcpserver.Server) {
	if srv != nil {
		aggregator.AddChecker(health.NewTCPChecker(srv))
	}
}

// AddReceiversChecker 添加接收机在线检查器到聚合器
func AddReceiversChecker(aggregator *health.Aggregator, tracker presence.Tracker, receivers []cfgpkg.ReceiverConfig) {
	if len(receivers) == 0 {
		return
	}
	ids := make([]string, 0, len(receivers))
	for _, r := range receivers {
		ids = append(ids, r.ID)
	}
	aggregator.AddChecker(health.NewReceiversChecker(tracker, ids))
}
