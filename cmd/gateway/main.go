package main

import (
	"flag"

	"go.uber.org/zap"

	"github.com/taoyao-code/gnss-gateway/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
	"github.com/taoyao-code/gnss-gateway/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，空则按 GNSS_CONFIG 与默认路径查找")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 启动网关
	if err := bootstrap.Run(cfg, logger); err != nil {
		logger.Fatal("gateway exited", zap.Error(err))
	}
}
