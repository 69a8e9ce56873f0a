// Package overlay 监听内核指纹图层状态文件，把每次状态变化转发为照明命令。
package overlay

import (
	"github.com/wfunc/fod-bridge/internal/errors"
)

// DefaultStatusPath 默认状态文件
const DefaultStatusPath = "/sys/devices/platform/soc/soc:qcom,dsi-display/fod_ui"

// Source 图层状态来源
type Source interface {
	// Wait 阻塞直到状态文件有事件，被中断时返回 ErrWatcherInterrupt
	Wait() error
	// ReadState 从偏移0读取一个字节，'0' 为隐藏，其余为显示
	ReadState() (bool, error)
	// Interrupt 使当前和之后的 Wait 立即返回
	Interrupt()
	Close() error
}

// Opener 打开状态来源
type Opener func() (Source, error)

// ParseState 解析状态字节
func ParseState(b byte) bool {
	return b != '0'
}

// interrupted 中断错误
func interrupted() error {
	return errors.New(errors.ErrWatcherInterrupt)
}

// IsInterrupted 判断是否为中断错误
func IsInterrupted(err error) bool {
	return errors.Is(err, errors.ErrWatcherInterrupt)
}
