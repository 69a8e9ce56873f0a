package sensor

import (
	"sync/atomic"

	"github.com/wfunc/fod-bridge/internal/errors"
	"go.uber.org/zap"
)

// 厂商扩展命令
const (
	CommandNit   int32 = 10 // 亮度模式命令
	ParamNitFOD  int32 = 1  // 指纹高亮
	ParamNitNone int32 = 0  // 恢复正常
)

// Illumination 指纹区域照明命令
type Illumination int

const (
	IlluminationNone Illumination = iota
	IlluminationFOD
)

// String 实现Stringer接口
func (i Illumination) String() string {
	if i == IlluminationFOD {
		return "FOD_ON"
	}
	return "FOD_NONE"
}

// FromOverlay 图层状态到照明命令的映射
func FromOverlay(shown bool) Illumination {
	if shown {
		return IlluminationFOD
	}
	return IlluminationNone
}

// Service 厂商指纹服务句柄
type Service interface {
	ExtCmd(cmd, param int32) error
}

// Params 照明命令参数
type Params struct {
	NitCommand int32
	ParamFOD   int32
	ParamNone  int32
}

// DefaultParams 默认参数
func DefaultParams() Params {
	return Params{NitCommand: CommandNit, ParamFOD: ParamNitFOD, ParamNone: ParamNitNone}
}

// Adapter 厂商指纹服务适配器
//
// 命令只发送不等待结果。服务句柄为空时命令被丢弃并记录日志。
type Adapter struct {
	service Service
	params  Params
	logger  *zap.Logger

	sent    atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// AdapterStats 适配器统计
type AdapterStats struct {
	Available bool   `json:"available"`
	Sent      uint64 `json:"sent"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

// NewAdapter 创建适配器，service 可以为 nil
func NewAdapter(service Service, params Params, log *zap.Logger) *Adapter {
	if service == nil {
		log.Warn("厂商指纹服务不可用，照明命令将被丢弃")
	}
	return &Adapter{service: service, params: params, logger: log}
}

// SendExtendedCommand 发送扩展命令
func (a *Adapter) SendExtendedCommand(cmd, param int32) {
	if a.service == nil {
		a.dropped.Add(1)
		a.logger.Warn("丢弃扩展命令",
			zap.Int32("cmd", cmd),
			zap.Int32("param", param),
			zap.Error(errors.New(errors.ErrServiceUnavailable)))
		return
	}

	a.sent.Add(1)
	if err := a.service.ExtCmd(cmd, param); err != nil {
		a.failed.Add(1)
		a.logger.Error("扩展命令发送失败",
			zap.Int32("cmd", cmd),
			zap.Int32("param", param),
			zap.Error(errors.Wrap(err, errors.ErrServiceCall)))
		return
	}

	a.logger.Debug("扩展命令已发送", zap.Int32("cmd", cmd), zap.Int32("param", param))
}

// Illuminate 发送照明命令
func (a *Adapter) Illuminate(cmd Illumination) {
	param := a.params.ParamNone
	if cmd == IlluminationFOD {
		param = a.params.ParamFOD
	}
	a.SendExtendedCommand(a.params.NitCommand, param)
}

// Available 服务句柄是否存在
func (a *Adapter) Available() bool {
	return a.service != nil
}

// Stats 获取统计
func (a *Adapter) Stats() AdapterStats {
	return AdapterStats{
		Available: a.Available(),
		Sent:      a.sent.Load(),
		Dropped:   a.dropped.Load(),
		Failed:    a.failed.Load(),
	}
}
