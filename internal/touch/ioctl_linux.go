//go:build linux

package touch

import (
	"sync"
	"unsafe"

	"github.com/wfunc/fod-bridge/internal/config"
	"github.com/wfunc/fod-bridge/internal/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// ioctl 发出设备控制请求，测试中可替换
var ioctl = func(fd int, request uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(request), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// IoctlChannel 通过ioctl设置触摸模式
//
// 设备节点只在创建时打开一次。打开失败后通道处于失效状态，
// 之后的请求仍然会发出并失败（EBADF），只记录日志。
type IoctlChannel struct {
	mu       sync.Mutex
	path     string
	fd       int
	selector int32
	request  uint
	logger   *zap.Logger
}

// NewIoctlChannel 打开触摸控制节点
func NewIoctlChannel(cfg *config.TouchConfig, log *zap.Logger) *IoctlChannel {
	c := &IoctlChannel{
		path:     cfg.DevicePath,
		fd:       -1,
		selector: cfg.FeatureSelector,
		request:  cfg.IoctlRequest,
		logger:   log,
	}
	if c.path == "" {
		c.path = DefaultDevicePath
	}
	if c.request == 0 {
		c.request = DefaultIoctlRequest
	}

	fd, err := unix.Open(c.path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		c.logger.Error("打开触摸设备失败",
			zap.String("path", c.path),
			zap.Error(errors.Wrap(err, errors.ErrDeviceOpen, c.path)))
		return c
	}
	c.fd = fd

	c.logger.Info("触摸设备已打开", zap.String("path", c.path), zap.Int("fd", fd))
	return c
}

// SetTouchMode 实现Channel接口
func (c *IoctlChannel) SetTouchMode(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	arg := Payload(c.selector, enabled)
	if err := ioctl(c.fd, c.request, unsafe.Pointer(&arg[0])); err != nil {
		appErr := errors.Wrapf(err, errors.ErrDeviceIoctl, "request 0x%x mode %d", c.request, arg[1])
		c.logger.Error("设置触摸模式失败",
			zap.Bool("enabled", enabled),
			zap.Int("fd", c.fd),
			zap.Error(appErr))
		return appErr
	}

	c.logger.Debug("触摸模式已设置", zap.Bool("enabled", enabled))
	return nil
}

// Opened 设备是否打开成功
func (c *IoctlChannel) Opened() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fd >= 0
}

// Close 关闭设备节点
func (c *IoctlChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fd < 0 {
		return nil
	}
	err := unix.Close(c.fd)
	c.fd = -1
	return err
}
