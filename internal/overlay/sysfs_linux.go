//go:build linux

package overlay

import (
	"encoding/binary"
	"sync"

	"github.com/wfunc/fod-bridge/internal/errors"
	"golang.org/x/sys/unix"
)

// SysfsSource 基于 poll(POLLPRI|POLLERR) 的sysfs状态来源
//
// 同时等待一个 eventfd，Interrupt 写入后 Wait 返回中断错误。
type SysfsSource struct {
	path string
	fd   int
	efd  int

	closeOnce sync.Once
}

// OpenSysfs 只读打开状态文件
func OpenSysfs(path string) (*SysfsSource, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrOverlayOpen, path)
	}

	efd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, errors.ErrOverlayOpen, "eventfd")
	}

	return &SysfsSource{path: path, fd: fd, efd: efd}, nil
}

// SysfsOpener 返回打开指定路径的 Opener
func SysfsOpener(path string) Opener {
	return func() (Source, error) {
		return OpenSysfs(path)
	}
}

// Wait 无超时等待
func (s *SysfsSource) Wait() error {
	fds := []unix.PollFd{
		{Fd: int32(s.fd), Events: unix.POLLERR | unix.POLLPRI},
		{Fd: int32(s.efd), Events: unix.POLLIN},
	}

	if _, err := unix.Poll(fds, -1); err != nil {
		return errors.Wrap(err, errors.ErrOverlayPoll, s.path)
	}
	if fds[1].Revents&unix.POLLIN != 0 {
		return interrupted()
	}
	return nil
}

// ReadState 实现Source接口
func (s *SysfsSource) ReadState() (bool, error) {
	if _, err := unix.Seek(s.fd, 0, unix.SEEK_SET); err != nil {
		return false, errors.Wrap(err, errors.ErrOverlayRead, "seek")
	}

	var buf [1]byte
	n, err := unix.Read(s.fd, buf[:])
	if err != nil {
		return false, errors.Wrap(err, errors.ErrOverlayRead, s.path)
	}
	if n != 1 {
		return false, errors.New(errors.ErrOverlayRead, "short read")
	}
	return ParseState(buf[0]), nil
}

// Interrupt 实现Source接口
func (s *SysfsSource) Interrupt() {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	unix.Write(s.efd, one[:])
}

// Close 实现Source接口
func (s *SysfsSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = unix.Close(s.fd)
		unix.Close(s.efd)
	})
	return err
}
