package inscreen

import (
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/wfunc/fod-bridge/internal/errors"
	"go.uber.org/zap"
)

// ExportConfig D-Bus导出配置
type ExportConfig struct {
	Name              string
	ObjectPath        string
	Interface         string
	ListenerInterface string
}

// dbusObject 导出到总线的方法集合
type dbusObject struct {
	svc       *Service
	conn      *dbus.Conn
	listenerI string
	logger    *zap.Logger
}

func (o *dbusObject) GetPositionX() (int32, *dbus.Error) { return o.svc.GetPositionX(), nil }

func (o *dbusObject) GetPositionY() (int32, *dbus.Error) { return o.svc.GetPositionY(), nil }

func (o *dbusObject) GetSize() (int32, *dbus.Error) { return o.svc.GetSize(), nil }

func (o *dbusObject) OnStartEnroll() *dbus.Error {
	o.svc.OnStartEnroll()
	return nil
}

func (o *dbusObject) OnFinishEnroll() *dbus.Error {
	o.svc.OnFinishEnroll()
	return nil
}

func (o *dbusObject) OnPress() *dbus.Error {
	o.svc.OnPress()
	return nil
}

func (o *dbusObject) OnRelease() *dbus.Error {
	o.svc.OnRelease()
	return nil
}

func (o *dbusObject) OnShowFODView() *dbus.Error {
	o.svc.OnShowFODView()
	return nil
}

func (o *dbusObject) OnHideFODView() *dbus.Error {
	o.svc.OnHideFODView()
	return nil
}

func (o *dbusObject) HandleAcquired(acquiredInfo, vendorCode int32) (bool, *dbus.Error) {
	return o.svc.HandleAcquired(acquiredInfo, vendorCode), nil
}

func (o *dbusObject) HandleError(errorCode, vendorCode int32) (bool, *dbus.Error) {
	return o.svc.HandleError(errorCode, vendorCode), nil
}

func (o *dbusObject) SetLongPressEnabled(enabled bool) *dbus.Error {
	o.svc.SetLongPressEnabled(enabled)
	return nil
}

func (o *dbusObject) GetDimAmount(brightness int32) (int32, *dbus.Error) {
	return o.svc.GetDimAmount(brightness), nil
}

func (o *dbusObject) ShouldBoostBrightness() (bool, *dbus.Error) {
	return o.svc.ShouldBoostBrightness(), nil
}

// SetCallback 以调用方对象作为监听器，路径为 "/" 或空时清除
func (o *dbusObject) SetCallback(sender dbus.Sender, path dbus.ObjectPath) *dbus.Error {
	if path == "" || path == "/" {
		o.svc.SetCallback(nil)
		return nil
	}
	if !path.IsValid() {
		return dbus.MakeFailedError(errors.Newf(errors.ErrInvalidParam, "object path %q", path))
	}

	o.logger.Info("注册远程监听器", zap.String("sender", string(sender)), zap.String("path", string(path)))
	o.svc.SetCallback(newRemoteListener(o.conn.Object(string(sender), path), o.listenerI))
	return nil
}

// remoteCaller 同步调用远程对象，dbus.BusObject 满足该接口
type remoteCaller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// remoteListener 调用远程对象的 OnFingerDown / OnFingerUp
type remoteListener struct {
	obj   remoteCaller
	iface string
}

func newRemoteListener(obj remoteCaller, iface string) *remoteListener {
	return &remoteListener{obj: obj, iface: iface}
}

func (r *remoteListener) OnFingerDown() error {
	return r.obj.Call(r.iface+".OnFingerDown", 0).Err
}

func (r *remoteListener) OnFingerUp() error {
	return r.obj.Call(r.iface+".OnFingerUp", 0).Err
}

// Exported 已导出的服务
type Exported struct {
	conn   *dbus.Conn
	cfg    ExportConfig
	logger *zap.Logger
}

// Export 在总线上导出服务并申请名称
func Export(conn *dbus.Conn, svc *Service, cfg ExportConfig, log *zap.Logger) (*Exported, error) {
	obj := &dbusObject{svc: svc, conn: conn, listenerI: cfg.ListenerInterface, logger: log}
	path := dbus.ObjectPath(cfg.ObjectPath)

	if err := conn.Export(obj, path, cfg.Interface); err != nil {
		return nil, errors.Wrap(err, errors.ErrDBusExport, cfg.Interface)
	}

	node := &introspect.Node{
		Name: cfg.ObjectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    cfg.Interface,
				Methods: introspect.Methods(obj),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, errors.Wrap(err, errors.ErrDBusExport, "introspectable")
	}

	reply, err := conn.RequestName(cfg.Name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDBusExport, cfg.Name)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, errors.Newf(errors.ErrDBusExport, "name %s already taken", cfg.Name)
	}

	log.Info("屏下指纹服务已导出",
		zap.String("name", cfg.Name),
		zap.String("path", cfg.ObjectPath),
		zap.String("interface", cfg.Interface))
	return &Exported{conn: conn, cfg: cfg, logger: log}, nil
}

// Close 撤销导出并释放名称
func (e *Exported) Close() error {
	path := dbus.ObjectPath(e.cfg.ObjectPath)
	e.conn.Export(nil, path, e.cfg.Interface)
	e.conn.Export(nil, path, "org.freedesktop.DBus.Introspectable")

	if _, err := e.conn.ReleaseName(e.cfg.Name); err != nil {
		return errors.Wrap(err, errors.ErrDBusExport, "release "+e.cfg.Name)
	}
	return nil
}
