package sensor

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/wfunc/fod-bridge/internal/config"
	"github.com/wfunc/fod-bridge/internal/errors"
	"go.uber.org/zap"
)

// caller 发起D-Bus方法调用，dbus.BusObject 满足该接口
type caller interface {
	Go(method string, flags dbus.Flags, ch chan *dbus.Call, args ...interface{}) *dbus.Call
}

// DBusService 通过D-Bus调用厂商指纹服务
type DBusService struct {
	obj    caller
	method string
}

// NewDBusService 绑定到厂商服务对象
func NewDBusService(conn *dbus.Conn, cfg *config.SensorConfig) *DBusService {
	return newDBusService(conn.Object(cfg.Destination, dbus.ObjectPath(cfg.ObjectPath)), cfg.Interface)
}

func newDBusService(obj caller, iface string) *DBusService {
	return &DBusService{obj: obj, method: iface + ".ExtCmd"}
}

// ExtCmd 发送扩展命令，不等待应答
func (s *DBusService) ExtCmd(cmd, param int32) error {
	call := s.obj.Go(s.method, dbus.FlagNoReplyExpected, nil, cmd, param)
	if call != nil && call.Err != nil {
		return call.Err
	}
	return nil
}

// ConnectBus 连接 system 或 session 总线
func ConnectBus(bus string) (*dbus.Conn, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch bus {
	case "system", "":
		conn, err = dbus.ConnectSystemBus()
	case "session":
		conn, err = dbus.ConnectSessionBus()
	default:
		return nil, errors.New(errors.ErrInvalidParam, fmt.Sprintf("unknown bus: %s", bus))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDBusConnect, bus)
	}
	return conn, nil
}

// Open 按配置获取厂商服务句柄
//
// 连接失败时返回 nil 服务，适配器会丢弃命令。
func Open(cfg *config.SensorConfig, log *zap.Logger) (Service, *dbus.Conn) {
	if !cfg.Enabled {
		log.Info("厂商指纹服务已禁用")
		return nil, nil
	}

	conn, err := ConnectBus(cfg.Bus)
	if err != nil {
		log.Error("获取厂商指纹服务失败",
			zap.String("destination", cfg.Destination),
			zap.Error(err))
		return nil, nil
	}

	log.Info("厂商指纹服务已连接",
		zap.String("bus", cfg.Bus),
		zap.String("destination", cfg.Destination),
		zap.String("path", cfg.ObjectPath))
	return NewDBusService(conn, cfg), conn
}
