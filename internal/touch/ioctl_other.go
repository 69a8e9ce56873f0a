//go:build !linux

package touch

import (
	"github.com/wfunc/fod-bridge/internal/config"
	"github.com/wfunc/fod-bridge/internal/errors"
	"go.uber.org/zap"
)

// IoctlChannel 非Linux平台上的占位实现，所有请求都失败
type IoctlChannel struct {
	path   string
	logger *zap.Logger
}

// NewIoctlChannel 创建占位通道
func NewIoctlChannel(cfg *config.TouchConfig, log *zap.Logger) *IoctlChannel {
	log.Warn("当前平台不支持ioctl触摸通道", zap.String("path", cfg.DevicePath))
	return &IoctlChannel{path: cfg.DevicePath, logger: log}
}

// SetTouchMode 实现Channel接口
func (c *IoctlChannel) SetTouchMode(enabled bool) error {
	err := errors.New(errors.ErrNotImplemented, "ioctl touch channel")
	c.logger.Error("设置触摸模式失败", zap.Bool("enabled", enabled), zap.Error(err))
	return err
}

// Opened 设备是否打开成功
func (c *IoctlChannel) Opened() bool { return false }

// Close 实现Channel接口
func (c *IoctlChannel) Close() error { return nil }
