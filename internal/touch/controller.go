package touch

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Observer 每次模式请求后回调
type Observer func(enabled bool, err error)

// Controller 指纹图层显示/隐藏到触摸模式的映射
type Controller struct {
	ch     Channel
	logger *zap.Logger

	mu       sync.RWMutex
	observer Observer

	requests atomic.Uint64
	failures atomic.Uint64
	enabled  atomic.Bool
}

// ControllerStats 控制器统计
type ControllerStats struct {
	Requests    uint64 `json:"requests"`
	Failures    uint64 `json:"failures"`
	LastEnabled bool   `json:"last_enabled"`
}

// NewController 创建控制器
func NewController(ch Channel, log *zap.Logger) *Controller {
	return &Controller{ch: ch, logger: log}
}

// SetObserver 设置请求观察者
func (c *Controller) SetObserver(o Observer) {
	c.mu.Lock()
	c.observer = o
	c.mu.Unlock()
}

// ShowOverlay 图层显示，开启指纹区域触摸
func (c *Controller) ShowOverlay() {
	c.apply(true)
}

// HideOverlay 图层隐藏，关闭指纹区域触摸
func (c *Controller) HideOverlay() {
	c.apply(false)
}

// apply 错误只记录不返回，通道本身已经记录过日志
func (c *Controller) apply(enabled bool) {
	c.requests.Add(1)
	c.enabled.Store(enabled)

	err := c.ch.SetTouchMode(enabled)
	if err != nil {
		c.failures.Add(1)
		c.logger.Debug("touch mode request failed", zap.Bool("enabled", enabled), zap.Error(err))
	}

	c.mu.RLock()
	o := c.observer
	c.mu.RUnlock()
	if o != nil {
		o(enabled, err)
	}
}

// Stats 获取统计
func (c *Controller) Stats() ControllerStats {
	return ControllerStats{
		Requests:    c.requests.Load(),
		Failures:    c.failures.Load(),
		LastEnabled: c.enabled.Load(),
	}
}

// Close 关闭设备通道
func (c *Controller) Close() error {
	return c.ch.Close()
}
