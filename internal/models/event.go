package models

import (
	"time"
)

// EventKind 桥接事件类型
type EventKind string

const (
	EventOverlayState EventKind = "overlay_state" // 图层状态唤醒
	EventTouchMode    EventKind = "touch_mode"    // 触摸模式请求
	EventFingerDown   EventKind = "finger_down"   // 手指按下
	EventFingerUp     EventKind = "finger_up"     // 手指抬起
	EventVendorError  EventKind = "vendor_error"  // 厂商错误
)

// BridgeEvent 桥接事件日志
type BridgeEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`

	Kind    EventKind `gorm:"type:varchar(32);index;not null" json:"kind"`
	Value   int32     `gorm:"not null" json:"value"`                     // 状态值 / 模式 / 错误码
	Detail  string    `gorm:"type:varchar(255)" json:"detail,omitempty"` // 命令或错误描述
	Success bool      `gorm:"not null;index" json:"success"`
}

// TableName 指定表名
func (BridgeEvent) TableName() string {
	return "bridge_events"
}

// EventQuery 事件查询条件
type EventQuery struct {
	Kind      EventKind  `form:"kind" json:"kind,omitempty"`
	Success   *bool      `form:"success" json:"success,omitempty"`
	StartTime *time.Time `form:"start_time" time_format:"2006-01-02T15:04:05Z07:00" json:"start_time,omitempty"`
	EndTime   *time.Time `form:"end_time" time_format:"2006-01-02T15:04:05Z07:00" json:"end_time,omitempty"`
	Limit     int        `form:"limit" json:"limit,omitempty"`
	Offset    int        `form:"offset" json:"offset,omitempty"`
}

// EventCount 按类型统计
type EventCount struct {
	Kind  EventKind `json:"kind"`
	Count int64     `json:"count"`
}
