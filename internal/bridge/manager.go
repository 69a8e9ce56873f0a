// Package bridge 组装屏下指纹桥接的各个组件并管理其生命周期。
package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/wfunc/fod-bridge/internal/config"
	"github.com/wfunc/fod-bridge/internal/database"
	"github.com/wfunc/fod-bridge/internal/errors"
	"github.com/wfunc/fod-bridge/internal/fingerprint"
	"github.com/wfunc/fod-bridge/internal/inscreen"
	"github.com/wfunc/fod-bridge/internal/journal"
	"github.com/wfunc/fod-bridge/internal/models"
	"github.com/wfunc/fod-bridge/internal/overlay"
	"github.com/wfunc/fod-bridge/internal/repository"
	"github.com/wfunc/fod-bridge/internal/sensor"
	"github.com/wfunc/fod-bridge/internal/touch"
	"github.com/wfunc/fod-bridge/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options 可替换的底层依赖，为空时按配置创建
type Options struct {
	Channel       touch.Channel
	OverlayOpener overlay.Opener
	SensorService sensor.Service
}

// Manager 桥接管理器
type Manager struct {
	mu     sync.RWMutex
	cfg    *config.Config
	logger *zap.Logger

	// 核心组件
	controller *touch.Controller
	adapter    *sensor.Adapter
	watcher    *overlay.Watcher
	dispatcher *fingerprint.Dispatcher
	service    *inscreen.Service
	hub        *websocket.Hub

	// 可选组件
	sensorConn *dbus.Conn
	exportConn *dbus.Conn
	exported   *inscreen.Exported
	db         *gorm.DB
	events     *repository.EventRepository
	recorder   *journal.Recorder

	// 运行状态
	cancel    context.CancelFunc
	running   bool
	closed    bool
	startTime time.Time
}

// Status 运行状态快照
type Status struct {
	Running          bool                   `json:"running"`
	StartTime        time.Time              `json:"start_time,omitempty"`
	Uptime           string                 `json:"uptime,omitempty"`
	Geometry         inscreen.Geometry      `json:"geometry"`
	Touch            touch.ControllerStats  `json:"touch"`
	Sensor           sensor.AdapterStats    `json:"sensor"`
	Overlay          *overlay.WatcherStats  `json:"overlay,omitempty"`
	ListenerSet      bool                   `json:"listener_set"`
	LongPress        bool                   `json:"long_press"`
	DBusExported     bool                   `json:"dbus_exported"`
	Journal          *journal.RecorderStats `json:"journal,omitempty"`
	WebSocketClients int                    `json:"websocket_clients"`
}

// New 按配置创建全部组件，不启动任何协程
func New(cfg *config.Config, opts Options, log *zap.Logger) (*Manager, error) {
	m := &Manager{cfg: cfg, logger: log}

	ch := opts.Channel
	if ch == nil {
		var err error
		if ch, err = touch.NewChannel(&cfg.Touch, log.Named("touch")); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigValidate)
		}
	}
	m.controller = touch.NewController(ch, log.Named("touch"))

	svc := opts.SensorService
	if svc == nil {
		svc, m.sensorConn = sensor.Open(&cfg.Sensor, log.Named("sensor"))
	}
	m.adapter = sensor.NewAdapter(svc, sensor.Params{
		NitCommand: cfg.Sensor.NitCommand,
		ParamFOD:   cfg.Sensor.ParamFOD,
		ParamNone:  cfg.Sensor.ParamNone,
	}, log.Named("sensor"))

	if cfg.Overlay.Enabled {
		open := opts.OverlayOpener
		if open == nil {
			open = overlay.SysfsOpener(cfg.Overlay.StatusPath)
		}
		m.watcher = overlay.NewWatcher(open, m.adapter, log.Named("overlay"))
	}

	m.dispatcher = fingerprint.NewDispatcher(log.Named("fingerprint"))
	m.hub = websocket.NewHub(websocket.OptionsFromConfig(&cfg.WebSocket), log.Named("websocket"))

	m.service = inscreen.New(inscreen.Options{
		Controller: m.controller,
		Dispatcher: m.dispatcher,
		Watcher:    m.watcher,
		Geometry: inscreen.Geometry{
			X:    cfg.Geometry.X,
			Y:    cfg.Geometry.Y,
			Size: cfg.Geometry.Size,
		},
		Logger: log.Named("inscreen"),
	})

	if cfg.Journal.Enabled {
		m.openJournal()
	}

	m.wireObservers()
	return m, nil
}

// openJournal 打开事件库，失败时只记录日志，桥接功能不受影响
func (m *Manager) openJournal() {
	log := m.logger.Named("journal")

	db, err := database.Open(&m.cfg.Database, log)
	if err != nil {
		log.Error("打开事件数据库失败，事件日志已禁用", zap.Error(err))
		return
	}
	if m.cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db, &m.cfg.Database, log); err != nil {
			log.Error("事件表迁移失败，事件日志已禁用", zap.Error(err))
			database.Close(db)
			return
		}
	}

	m.db = db
	m.events = repository.NewEventRepository(db)
	m.recorder = journal.NewRecorder(m.events, &m.cfg.Journal, log)
}

// wireObservers 将组件事件转发到事件日志和WebSocket
func (m *Manager) wireObservers() {
	m.controller.SetObserver(func(enabled bool, err error) {
		m.record(journal.TouchModeEvent(enabled, err))
		data := map[string]interface{}{"enabled": enabled, "mode": touch.Mode(enabled)}
		if err != nil {
			data["error"] = err.Error()
		}
		m.hub.Publish(websocket.MessageTypeTouchMode, data)
	})

	if m.watcher != nil {
		m.watcher.SetStateHandler(func(shown bool, cmd sensor.Illumination) {
			m.record(journal.OverlayEvent(shown, cmd))
			m.hub.Publish(websocket.MessageTypeOverlayState, map[string]interface{}{
				"shown":   shown,
				"command": cmd.String(),
			})
		})
	}

	m.dispatcher.SetObserver(func(ev fingerprint.Event, err error) {
		m.record(journal.FingerEvent(ev, err))
		msgType := websocket.MessageTypeFingerDown
		if ev == fingerprint.EventFingerUp {
			msgType = websocket.MessageTypeFingerUp
		}
		data := map[string]interface{}{"delivered": err == nil}
		if err != nil {
			data["error"] = err.Error()
		}
		m.hub.Publish(msgType, data)
	})

	m.dispatcher.SetErrorObserver(func(errorCode, vendorCode int32) {
		m.record(journal.VendorErrorEvent(errorCode, vendorCode))
		m.hub.Publish(websocket.MessageTypeVendorError, map[string]int32{
			"error_code":  errorCode,
			"vendor_code": vendorCode,
		})
	})
}

func (m *Manager) record(ev *models.BridgeEvent) {
	if m.recorder != nil {
		m.recorder.Record(ev)
	}
}

// Start 启动监视器、事件日志、WebSocket和D-Bus导出
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New(errors.ErrAlreadyExists, "bridge manager running")
	}
	if m.closed {
		return errors.New(errors.ErrCanceled, "bridge manager stopped")
	}

	ctx, cancel := context.WithCancel(ctx)

	go m.hub.Run(ctx)

	if m.recorder != nil {
		if err := m.recorder.Start(ctx); err != nil {
			cancel()
			return err
		}
	}

	if err := m.service.Start(ctx); err != nil {
		m.shutdown(cancel)
		return err
	}

	if m.cfg.DBus.Export {
		if err := m.export(); err != nil {
			m.shutdown(cancel)
			return err
		}
	}

	m.cancel = cancel
	m.running = true
	m.startTime = time.Now()

	m.logger.Info("屏下指纹桥接已启动",
		zap.String("touch_driver", m.cfg.Touch.Driver),
		zap.Bool("overlay", m.watcher != nil),
		zap.Bool("sensor", m.adapter.Available()),
		zap.Bool("journal", m.recorder != nil),
		zap.Bool("dbus_export", m.exported != nil))
	return nil
}

func (m *Manager) export() error {
	conn, err := sensor.ConnectBus(m.cfg.DBus.Bus)
	if err != nil {
		return err
	}

	exported, err := inscreen.Export(conn, m.service, inscreen.ExportConfig{
		Name:              m.cfg.DBus.Name,
		ObjectPath:        m.cfg.DBus.ObjectPath,
		Interface:         m.cfg.DBus.Interface,
		ListenerInterface: m.cfg.DBus.ListenerInterface,
	}, m.logger.Named("dbus"))
	if err != nil {
		conn.Close()
		return err
	}

	m.exportConn = conn
	m.exported = exported
	return nil
}

// Stop 停止所有组件，停止后不能再次启动
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.running = false
	m.shutdown(m.cancel)
	m.logger.Info("屏下指纹桥接已停止")
}

// shutdown 按依赖逆序释放资源，cancel 为空表示从未启动
func (m *Manager) shutdown(cancel context.CancelFunc) {
	m.closed = true

	if m.exported != nil {
		if err := m.exported.Close(); err != nil {
			m.logger.Warn("撤销D-Bus导出失败", zap.Error(err))
		}
		m.exported = nil
	}
	if m.exportConn != nil {
		m.exportConn.Close()
		m.exportConn = nil
	}

	if err := m.service.Close(); err != nil {
		m.logger.Warn("关闭触摸通道失败", zap.Error(err))
	}

	if cancel != nil {
		cancel()
		<-m.hub.Done()
	}
	if m.recorder != nil {
		m.recorder.Stop()
	}

	if m.sensorConn != nil {
		m.sensorConn.Close()
		m.sensorConn = nil
	}
	if m.db != nil {
		database.Close(m.db)
	}
}

// Status 获取状态
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{
		Running:          m.running,
		Geometry:         m.service.Geometry(),
		Touch:            m.controller.Stats(),
		Sensor:           m.adapter.Stats(),
		ListenerSet:      m.dispatcher.HasListener(),
		LongPress:        m.service.LongPressEnabled(),
		DBusExported:     m.exported != nil,
		WebSocketClients: m.hub.GetOnlineCount(),
	}
	if m.running {
		st.StartTime = m.startTime
		st.Uptime = time.Since(m.startTime).Truncate(time.Second).String()
	}
	if m.watcher != nil {
		ws := m.watcher.Stats()
		st.Overlay = &ws
	}
	if m.recorder != nil {
		rs := m.recorder.Stats()
		st.Journal = &rs
	}
	return st
}

// Service 屏下指纹服务对象
func (m *Manager) Service() *inscreen.Service { return m.service }

// Hub WebSocket中心
func (m *Manager) Hub() *websocket.Hub { return m.hub }

// Events 事件仓库，事件日志未启用时为 nil
func (m *Manager) Events() *repository.EventRepository { return m.events }

// Adapter 厂商服务适配器
func (m *Manager) Adapter() *sensor.Adapter { return m.adapter }
