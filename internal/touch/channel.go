package touch

import (
	"fmt"

	"github.com/wfunc/fod-bridge/internal/config"
	"go.uber.org/zap"
)

// 指纹区域触摸模式
const (
	ModeEnabled  int32 = 1
	ModeDisabled int32 = -1
)

// 默认参数
const (
	DefaultDevicePath      string = "/dev/xiaomi-touch"
	DefaultFeatureSelector int32  = 10
	DefaultIoctlRequest    uint   = 0x5400
)

// Channel 触摸控制设备通道
type Channel interface {
	// SetTouchMode 设置指纹区域触摸模式
	SetTouchMode(enabled bool) error
	Close() error
}

// Mode 将开关转换为模式值
func Mode(enabled bool) int32 {
	if enabled {
		return ModeEnabled
	}
	return ModeDisabled
}

// Payload 模式设置请求的参数 [功能号, ±1]
func Payload(selector int32, enabled bool) [2]int32 {
	return [2]int32{selector, Mode(enabled)}
}

// NewChannel 根据配置选择驱动
func NewChannel(cfg *config.TouchConfig, log *zap.Logger) (Channel, error) {
	switch cfg.Driver {
	case "ioctl", "":
		return NewIoctlChannel(cfg, log), nil
	case "serial":
		return NewSerialChannel(cfg, log), nil
	case "mock":
		return NewMockChannel(), nil
	default:
		return nil, fmt.Errorf("unknown touch driver: %s", cfg.Driver)
	}
}
