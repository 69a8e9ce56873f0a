package touch

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
	"github.com/wfunc/fod-bridge/internal/config"
	"github.com/wfunc/fod-bridge/internal/errors"
	"go.uber.org/zap"
)

// reconnectInterval 两次重新打开串口的最小间隔
const reconnectInterval = 2 * time.Second

// portOpener 打开串口
type portOpener func() (io.ReadWriteCloser, error)

// SerialChannel 通过串口连接的触摸MCU
//
// 打开失败或写入失败后通道离线，请求返回错误并记录日志。
// 离线期间的请求会按 reconnectInterval 节流尝试重新打开串口。
type SerialChannel struct {
	mu          sync.Mutex
	port        io.ReadWriteCloser
	open        portOpener
	name        string
	selector    int32
	seq         uint16
	waitAck     bool
	logger      *zap.Logger
	openFailure error
	retryAt     time.Time
	closed      bool
	now         func() time.Time
}

// NewSerialChannel 打开串口
func NewSerialChannel(cfg *config.TouchConfig, log *zap.Logger) *SerialChannel {
	sc := cfg.Serial

	// 解析校验位
	parity := serial.ParityNone
	switch sc.Parity {
	case "O", "odd":
		parity = serial.ParityOdd
	case "E", "even":
		parity = serial.ParityEven
	}

	serialCfg := &serial.Config{
		Name:        sc.Port,
		Baud:        sc.BaudRate,
		Size:        byte(sc.DataBits),
		Parity:      parity,
		StopBits:    serial.StopBits(sc.StopBits),
		ReadTimeout: sc.ReadTimeout,
	}
	open := func() (io.ReadWriteCloser, error) {
		return serial.OpenPort(serialCfg)
	}

	c := newSerialChannel(nil, sc.Port, cfg.FeatureSelector, sc.ReadTimeout > 0, log)
	c.open = open

	port, err := open()
	if err != nil {
		c.markOffline(errors.Wrap(err, errors.ErrDeviceOpen, sc.Port))
		log.Error("打开触摸串口失败", zap.String("port", sc.Port), zap.Error(c.openFailure))
		return c
	}

	log.Info("触摸串口已打开", zap.String("port", sc.Port), zap.Int("baud", sc.BaudRate))
	c.port = port
	return c
}

func newSerialChannel(port io.ReadWriteCloser, name string, selector int32, waitAck bool, log *zap.Logger) *SerialChannel {
	return &SerialChannel{
		port:     port,
		name:     name,
		selector: selector,
		waitAck:  waitAck,
		logger:   log,
		now:      time.Now,
	}
}

// markOffline 记录失败原因并设置下次重连时间，调用方持有锁
func (c *SerialChannel) markOffline(cause error) {
	if c.port != nil {
		c.port.Close()
		c.port = nil
	}
	c.openFailure = cause
	c.retryAt = c.now().Add(reconnectInterval)
}

// reconnect 离线且到达重连时间时重新打开串口，调用方持有锁
func (c *SerialChannel) reconnect() {
	if c.port != nil || c.open == nil || c.closed || c.now().Before(c.retryAt) {
		return
	}

	port, err := c.open()
	if err != nil {
		c.markOffline(errors.Wrap(err, errors.ErrDeviceOpen, c.name))
		c.logger.Warn("重新打开触摸串口失败", zap.String("port", c.name), zap.Error(err))
		return
	}

	c.port = port
	c.openFailure = nil
	c.logger.Info("触摸串口已重新连接", zap.String("port", c.name))
}

// SetTouchMode 发送模式设置帧，配置了读超时时等待ACK
func (c *SerialChannel) SetTouchMode(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reconnect()
	if c.port == nil {
		err := errors.New(errors.ErrDeviceOffline, c.name)
		if c.openFailure != nil {
			err.WithCause(c.openFailure)
		}
		c.logger.Error("设置触摸模式失败", zap.Bool("enabled", enabled), zap.Error(err))
		return err
	}

	c.seq++
	frame := NewSetModeFrame(c.seq, c.selector, enabled)
	if _, err := c.port.Write(frame.ToBytes()); err != nil {
		appErr := errors.Wrap(err, errors.ErrDeviceWrite, c.name)
		c.logger.Error("写入触摸串口失败", zap.Bool("enabled", enabled), zap.Error(appErr))
		c.markOffline(appErr)
		return appErr
	}

	if !c.waitAck {
		return nil
	}
	if err := c.readAck(frame.Sequence); err != nil {
		c.logger.Error("触摸MCU未确认", zap.Bool("enabled", enabled), zap.Error(err))
		return err
	}

	c.logger.Debug("触摸模式已设置", zap.Bool("enabled", enabled), zap.Uint16("seq", frame.Sequence))
	return nil
}

// readAck 读取应答帧
func (c *SerialChannel) readAck(seq uint16) error {
	buf := make([]byte, 0, 64)
	chunk := make([]byte, 64)
	deadline := time.Now().Add(time.Second)

	for time.Now().Before(deadline) {
		n, err := c.port.Read(chunk)
		if err != nil && err != io.EOF {
			return errors.Wrap(err, errors.ErrDeviceWrite, "read ack")
		}
		if n == 0 {
			// tarm/serial 读超时返回 0, EOF
			return errors.New(errors.ErrSerialTimeout, c.name)
		}
		buf = append(buf, chunk[:n]...)

		frame, perr := ParseFrame(buf)
		if perr != nil {
			if len(buf) >= 256 {
				return errors.New(errors.ErrMessageFormat, perr.Error())
			}
			continue
		}
		if frame.Sequence != seq {
			return errors.Newf(errors.ErrMessageFormat, "ack seq %d, want %d", frame.Sequence, seq)
		}
		if frame.Command != CmdACK {
			return errors.Newf(errors.ErrDeviceIoctl, "mcu rejected: cmd 0x%02X", frame.Command)
		}
		return nil
	}

	return errors.New(errors.ErrSerialTimeout, fmt.Sprintf("%s seq %d", c.name, seq))
}

// Close 关闭串口
func (c *SerialChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reconnect()
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}
