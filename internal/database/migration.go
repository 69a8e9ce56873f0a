package database

import (
	"fmt"

	"github.com/wfunc/fod-bridge/internal/config"
	"github.com/wfunc/fod-bridge/internal/errors"
	"github.com/wfunc/fod-bridge/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models 需要迁移的模型
func Models() []interface{} {
	return []interface{}{
		&models.BridgeEvent{},
	}
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB, cfg *config.DatabaseConfig, log *zap.Logger) error {
	if db == nil {
		return errors.New(errors.ErrDatabaseConnect, "数据库未初始化")
	}

	// 文件型sqlite加锁，避免多个进程同时迁移
	if db.Dialector.Name() == "sqlite" {
		if path := sqliteFile(cfg.DSN); path != "" {
			lockFile, err := acquireMigrationLock(path, log)
			if err != nil {
				return errors.Wrap(err, errors.ErrDatabaseConnect, "migration lock")
			}
			defer releaseMigrationLock(lockFile, log)
		}
	}

	log.Info("开始数据库迁移...")
	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			log.Error("迁移失败", zap.String("model", fmt.Sprintf("%T", model)), zap.Error(err))
			return errors.Wrap(err, errors.ErrDatabaseConnect, fmt.Sprintf("migrate %T", model))
		}
		log.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}
	log.Info("数据库迁移完成")
	return nil
}
