package repository

import (
	"context"
	"time"

	"github.com/wfunc/fod-bridge/internal/errors"
	"github.com/wfunc/fod-bridge/internal/models"
	"gorm.io/gorm"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)

// EventRepository 桥接事件仓库
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建事件仓库
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create 创建事件记录
func (r *EventRepository) Create(ctx context.Context, event *models.BridgeEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert, "bridge_events")
	}
	return nil
}

// CreateBatch 批量创建事件记录
func (r *EventRepository) CreateBatch(ctx context.Context, events []*models.BridgeEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(events, 100).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert, "bridge_events batch")
	}
	return nil
}

// Query 查询事件，按时间倒序
func (r *EventRepository) Query(ctx context.Context, query *models.EventQuery) ([]*models.BridgeEvent, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.BridgeEvent{})

	// 构建查询条件
	if query.Kind != "" {
		db = db.Where("kind = ?", query.Kind)
	}
	if query.Success != nil {
		db = db.Where("success = ?", *query.Success)
	}
	if query.StartTime != nil {
		db = db.Where("created_at >= ?", *query.StartTime)
	}
	if query.EndTime != nil {
		db = db.Where("created_at <= ?", *query.EndTime)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrDatabaseQuery, "count")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	var events []*models.BridgeEvent
	err := db.Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Offset(query.Offset).
		Find(&events).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrDatabaseQuery, "bridge_events")
	}

	return events, total, nil
}

// CountByKind 按类型统计事件数
func (r *EventRepository) CountByKind(ctx context.Context) ([]models.EventCount, error) {
	var counts []models.EventCount
	err := r.db.WithContext(ctx).Model(&models.BridgeEvent{}).
		Select("kind, COUNT(*) AS count").
		Group("kind").
		Order("kind").
		Scan(&counts).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "count by kind")
	}
	return counts, nil
}

// DeleteBefore 删除指定时间之前的事件，返回删除条数
func (r *EventRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&models.BridgeEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrDatabaseDelete, "bridge_events")
	}
	return result.RowsAffected, nil
}
