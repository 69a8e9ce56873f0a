package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/fod-bridge/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 创建内存测试数据库并完成迁移
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// 使用内存数据库进行测试（更快，不需要文件系统）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库每个连接独立，限制为单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.BridgeEvent{}))

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// CreateTestEvent 构造测试事件
func CreateTestEvent(kind models.EventKind, value int32, success bool, at time.Time) *models.BridgeEvent {
	return &models.BridgeEvent{
		CreatedAt: at,
		Kind:      kind,
		Value:     value,
		Success:   success,
	}
}

// AssertEvent 比较事件的业务字段
func AssertEvent(t *testing.T, expected, actual *models.BridgeEvent) {
	t.Helper()
	assert.Equal(t, expected.Kind, actual.Kind)
	assert.Equal(t, expected.Value, actual.Value)
	assert.Equal(t, expected.Detail, actual.Detail)
	assert.Equal(t, expected.Success, actual.Success)
}
