// Package fingerprint 将厂商的采集事件分类为手指按下/抬起，并投递给注册的监听器。
package fingerprint

import (
	"sync"

	"github.com/wfunc/fod-bridge/internal/errors"
	"go.uber.org/zap"
)

// 厂商采集码
const (
	AcquiredVendor   int32 = 6  // 厂商自定义采集信息
	VendorFingerDown int32 = 22 // 手指按下
	VendorFingerUp   int32 = 23 // 手指抬起
)

// Event 分类后的手指事件
type Event int

const (
	EventNone Event = iota
	EventFingerDown
	EventFingerUp
)

// String 实现Stringer接口
func (e Event) String() string {
	switch e {
	case EventFingerDown:
		return "finger_down"
	case EventFingerUp:
		return "finger_up"
	default:
		return "none"
	}
}

// Classify 对采集事件分类
func Classify(acquiredInfo, vendorCode int32) Event {
	if acquiredInfo != AcquiredVendor {
		return EventNone
	}
	switch vendorCode {
	case VendorFingerDown:
		return EventFingerDown
	case VendorFingerUp:
		return EventFingerUp
	default:
		return EventNone
	}
}

// Listener 手指事件监听器
type Listener interface {
	OnFingerDown() error
	OnFingerUp() error
}

// guardedListener 互斥保护的监听器引用，调用期间持有锁
type guardedListener struct {
	mu sync.Mutex
	l  Listener
}

func (g *guardedListener) swap(l Listener) {
	g.mu.Lock()
	g.l = l
	g.mu.Unlock()
}

func (g *guardedListener) present() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.l != nil
}

// invoke 持锁执行 fn，没有监听器时返回 false
func (g *guardedListener) invoke(fn func(Listener)) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.l == nil {
		return false
	}
	fn(g.l)
	return true
}

// Observer 事件投递后回调，err 为监听器返回的错误
type Observer func(ev Event, err error)

// ErrorObserver 厂商错误回调
type ErrorObserver func(errorCode, vendorCode int32)

// Dispatcher 回调分发器
type Dispatcher struct {
	listener guardedListener
	logger   *zap.Logger

	mu      sync.RWMutex
	onEvent Observer
	onError ErrorObserver
}

// NewDispatcher 创建分发器
func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{logger: log}
}

// SetListener 注册或替换监听器，nil 表示清除
func (d *Dispatcher) SetListener(l Listener) {
	d.listener.swap(l)
	d.logger.Info("监听器已更新", zap.Bool("registered", l != nil))
}

// HasListener 当前是否有监听器
func (d *Dispatcher) HasListener() bool {
	return d.listener.present()
}

// SetObserver 设置事件观察者
func (d *Dispatcher) SetObserver(o Observer) {
	d.mu.Lock()
	d.onEvent = o
	d.mu.Unlock()
}

// SetErrorObserver 设置厂商错误观察者
func (d *Dispatcher) SetErrorObserver(o ErrorObserver) {
	d.mu.Lock()
	d.onError = o
	d.mu.Unlock()
}

// HandleAcquired 分类采集事件并投递，已识别为手指事件时返回 true
//
// 监听器的错误只记录日志，不影响返回值。
func (d *Dispatcher) HandleAcquired(acquiredInfo, vendorCode int32) bool {
	ev := Classify(acquiredInfo, vendorCode)

	var callErr error
	handled := d.listener.invoke(func(l Listener) {
		switch ev {
		case EventFingerDown:
			callErr = l.OnFingerDown()
		case EventFingerUp:
			callErr = l.OnFingerUp()
		}
	})
	if !handled || ev == EventNone {
		return false
	}

	if callErr != nil {
		d.logger.Error("监听器调用失败",
			zap.Stringer("event", ev),
			zap.Error(errors.Wrap(callErr, errors.ErrListenerInvoke)))
	}

	d.mu.RLock()
	o := d.onEvent
	d.mu.RUnlock()
	if o != nil {
		o(ev, callErr)
	}
	return true
}

// HandleError 记录厂商错误，始终返回 false
func (d *Dispatcher) HandleError(errorCode, vendorCode int32) bool {
	d.logger.Error("指纹传感器错误",
		zap.Int32("error", errorCode),
		zap.Int32("vendor_code", vendorCode))

	d.mu.RLock()
	o := d.onError
	d.mu.RUnlock()
	if o != nil {
		o(errorCode, vendorCode)
	}
	return false
}
