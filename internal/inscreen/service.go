// Package inscreen 屏下指纹服务对象，组合触摸模式控制、图层监视和回调分发。
package inscreen

import (
	"context"
	"sync"

	"github.com/wfunc/fod-bridge/internal/fingerprint"
	"github.com/wfunc/fod-bridge/internal/overlay"
	"github.com/wfunc/fod-bridge/internal/touch"
	"go.uber.org/zap"
)

// Geometry 传感器在屏幕上的位置
type Geometry struct {
	X    int32 `json:"x"`
	Y    int32 `json:"y"`
	Size int32 `json:"size"`
}

// DefaultGeometry 默认位置
func DefaultGeometry() Geometry {
	return Geometry{X: 445, Y: 1931, Size: 190}
}

// Options 服务依赖
type Options struct {
	Controller *touch.Controller
	Dispatcher *fingerprint.Dispatcher
	Watcher    *overlay.Watcher // 可选
	Geometry   Geometry
	Logger     *zap.Logger
}

// Service 屏下指纹服务
type Service struct {
	controller *touch.Controller
	dispatcher *fingerprint.Dispatcher
	watcher    *overlay.Watcher
	geometry   Geometry
	logger     *zap.Logger

	mu        sync.Mutex
	longPress bool
	closed    bool
}

// New 创建服务
func New(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		controller: opts.Controller,
		dispatcher: opts.Dispatcher,
		watcher:    opts.Watcher,
		geometry:   opts.Geometry,
		logger:     log,
	}
}

// Start 启动图层监视器
func (s *Service) Start(ctx context.Context) error {
	if s.watcher == nil {
		s.logger.Info("图层监视已禁用")
		return nil
	}
	return s.watcher.Start(ctx)
}

// Close 停止监视器并关闭触摸通道
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.watcher != nil {
		s.watcher.Stop()
	}
	return s.controller.Close()
}

// GetPositionX 传感器中心X坐标
func (s *Service) GetPositionX() int32 { return s.geometry.X }

// GetPositionY 传感器中心Y坐标
func (s *Service) GetPositionY() int32 { return s.geometry.Y }

// GetSize 传感器直径
func (s *Service) GetSize() int32 { return s.geometry.Size }

// Geometry 传感器位置
func (s *Service) Geometry() Geometry { return s.geometry }

func (s *Service) OnStartEnroll() {
	s.logger.Debug("OnStartEnroll")
}

func (s *Service) OnFinishEnroll() {
	s.logger.Debug("OnFinishEnroll")
}

func (s *Service) OnPress() {
	s.logger.Debug("OnPress")
}

func (s *Service) OnRelease() {
	s.logger.Debug("OnRelease")
}

// OnShowFODView 图层显示
func (s *Service) OnShowFODView() {
	s.controller.ShowOverlay()
}

// OnHideFODView 图层隐藏
func (s *Service) OnHideFODView() {
	s.controller.HideOverlay()
}

// HandleAcquired 交给回调分发器
func (s *Service) HandleAcquired(acquiredInfo, vendorCode int32) bool {
	return s.dispatcher.HandleAcquired(acquiredInfo, vendorCode)
}

// HandleError 交给回调分发器
func (s *Service) HandleError(errorCode, vendorCode int32) bool {
	return s.dispatcher.HandleError(errorCode, vendorCode)
}

// SetLongPressEnabled 只记录设置
func (s *Service) SetLongPressEnabled(enabled bool) {
	s.mu.Lock()
	s.longPress = enabled
	s.mu.Unlock()
	s.logger.Debug("SetLongPressEnabled", zap.Bool("enabled", enabled))
}

// LongPressEnabled 最近一次设置
func (s *Service) LongPressEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.longPress
}

// GetDimAmount 不调暗
func (s *Service) GetDimAmount(brightness int32) int32 {
	return 0
}

// ShouldBoostBrightness 不提亮
func (s *Service) ShouldBoostBrightness() bool {
	return false
}

// SetCallback 注册或清除监听器
func (s *Service) SetCallback(l fingerprint.Listener) {
	s.dispatcher.SetListener(l)
}

// Controller 触摸模式控制器
func (s *Service) Controller() *touch.Controller { return s.controller }

// Dispatcher 回调分发器
func (s *Service) Dispatcher() *fingerprint.Dispatcher { return s.dispatcher }

// Watcher 图层监视器，未启用时为 nil
func (s *Service) Watcher() *overlay.Watcher { return s.watcher }
