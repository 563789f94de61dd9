package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"KVisit/internal/model"
	"KVisit/pkg/logger"
)

// Migrate 运行数据库迁移。向导进行中的数据只在 Redis，表里只有完成后的规范化记录
func Migrate() error {
	db := DB()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	if err := db.AutoMigrate(&model.OnboardingProfile{}); err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	logger.Logger.Info("Database migration completed successfully")
	return nil
}
