package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
	"github.com/taoyao-code/gnss-gateway/internal/migrate"
	"github.com/taoyao-code/gnss-gateway/internal/storage"
	"github.com/taoyao-code/gnss-gateway/internal/storage/gormrepo"
	pgstorage "github.com/taoyao-code/gnss-gateway/internal/storage/pg"
)

// ConnectDBAndMigrate 建立数据库连接并执行迁移
// MigrateDir 为空时跳过迁移，只建连接。
func ConnectDBAndMigrate(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	dbpool, err := pgstorage.NewPool(ctx, cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, log)
	if err != nil {
		if log != nil {
			log.Error("db connect error", zap.Error(err))
		}
		return nil, err
	}
	if cfg.MigrateDir != "" {
		if err = (migrate.Runner{Dir: cfg.MigrateDir}).Up(ctx, dbpool); err != nil {
			if log != nil {
				log.Error("db migrate error", zap.Error(err))
			}
			dbpool.Close()
			return nil, err
		}
		if log != nil {
			log.Info("db migrations applied", zap.String("dir", cfg.MigrateDir))
		}
	}
	return dbpool, nil
}

// OpenCoreRepo 打开控制面存储（GORM）。
// 与数据面的 pgx 连接池指向同一个库、各自持有连接；返回的 closer 归还连接。
func OpenCoreRepo(cfg cfgpkg.DatabaseConfig, log *zap.Logger) (storage.CoreRepo, func() error, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		if log != nil {
			log.Error("core repo connect error", zap.Error(err))
		}
		return nil, nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return gormrepo.New(gdb), sqlDB.Close, nil
}
