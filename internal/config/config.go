package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Touch     TouchConfig     `mapstructure:"touch"`
	Overlay   OverlayConfig   `mapstructure:"overlay"`
	Sensor    SensorConfig    `mapstructure:"sensor"`
	Geometry  GeometryConfig  `mapstructure:"geometry"`
	DBus      DBusConfig      `mapstructure:"dbus"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Security  SecurityConfig  `mapstructure:"security"`
	Log       LogConfig       `mapstructure:"log"`
	System    SystemConfig    `mapstructure:"system"`
}

// TouchConfig 触摸控制设备配置
type TouchConfig struct {
	Driver          string       `mapstructure:"driver"`           // ioctl / serial / mock
	DevicePath      string       `mapstructure:"device_path"`      // 触摸控制节点
	FeatureSelector int32        `mapstructure:"feature_selector"` // 指纹区域触摸功能号
	IoctlRequest    uint         `mapstructure:"ioctl_request"`    // 模式设置请求码
	Serial          SerialConfig `mapstructure:"serial"`
}

// SerialConfig 串口配置（触摸MCU通过串口连接时使用）
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	BaudRate    int           `mapstructure:"baud_rate"`
	DataBits    int           `mapstructure:"data_bits"`
	StopBits    int           `mapstructure:"stop_bits"`
	Parity      string        `mapstructure:"parity"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// OverlayConfig 指纹图层状态监听配置
type OverlayConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	StatusPath string `mapstructure:"status_path"`
}

// SensorConfig 厂商指纹服务配置
type SensorConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Bus         string `mapstructure:"bus"` // system / session
	Destination string `mapstructure:"destination"`
	ObjectPath  string `mapstructure:"object_path"`
	Interface   string `mapstructure:"interface"`
	NitCommand  int32  `mapstructure:"nit_command"`
	ParamFOD    int32  `mapstructure:"param_fod"`
	ParamNone   int32  `mapstructure:"param_none"`
}

// GeometryConfig 传感器位置配置
type GeometryConfig struct {
	X    int32 `mapstructure:"x"`
	Y    int32 `mapstructure:"y"`
	Size int32 `mapstructure:"size"`
}

// DBusConfig 对外导出的D-Bus服务配置
type DBusConfig struct {
	Export     bool   `mapstructure:"export"`
	Bus        string `mapstructure:"bus"`
	Name       string `mapstructure:"name"`
	ObjectPath string `mapstructure:"object_path"`
	Interface  string `mapstructure:"interface"`
	// 回调对象实现的接口名
	ListenerInterface string `mapstructure:"listener_interface"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// JournalConfig 事件日志配置
type JournalConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	Retention     time.Duration `mapstructure:"retention"`
}

// ServerConfig 诊断HTTP服务配置
type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Path            string        `mapstructure:"path"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT               JWTConfig `mapstructure:"jwt"`
	AdminPasswordHash string    `mapstructure:"admin_password_hash"` // argon2id编码
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	Timezone string `mapstructure:"timezone"`
	MaxProcs int    `mapstructure:"max_procs"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()
		cfg, err = load(v, configPath)
	})

	return err
}

// Load 读取配置但不写入全局实例（测试与工具命令使用）
func Load(configPath string) (*Config, error) {
	return load(viper.New(), configPath)
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/fod-bridge")
		v.AddConfigPath(".")
	}

	// 设置环境变量前缀
	v.SetEnvPrefix("FOD_BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 如果配置文件不存在，使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 触摸控制默认配置
	v.SetDefault("touch.driver", "ioctl")
	v.SetDefault("touch.device_path", "/dev/xiaomi-touch")
	v.SetDefault("touch.feature_selector", 10)
	v.SetDefault("touch.ioctl_request", 0x5400)
	v.SetDefault("touch.serial.port", "/dev/ttyS1")
	v.SetDefault("touch.serial.baud_rate", 115200)
	v.SetDefault("touch.serial.data_bits", 8)
	v.SetDefault("touch.serial.stop_bits", 1)
	v.SetDefault("touch.serial.parity", "N")
	v.SetDefault("touch.serial.read_timeout", "100ms")

	// 图层状态默认配置
	v.SetDefault("overlay.enabled", true)
	v.SetDefault("overlay.status_path", "/sys/devices/platform/soc/soc:qcom,dsi-display/fod_ui")

	// 厂商服务默认配置
	v.SetDefault("sensor.enabled", true)
	v.SetDefault("sensor.bus", "system")
	v.SetDefault("sensor.destination", "vendor.xiaomi.Fingerprint1")
	v.SetDefault("sensor.object_path", "/vendor/xiaomi/Fingerprint1")
	v.SetDefault("sensor.interface", "vendor.xiaomi.Fingerprint1")
	v.SetDefault("sensor.nit_command", 10)
	v.SetDefault("sensor.param_fod", 1)
	v.SetDefault("sensor.param_none", 0)

	// 传感器几何参数
	v.SetDefault("geometry.x", 445)
	v.SetDefault("geometry.y", 1931)
	v.SetDefault("geometry.size", 190)

	// D-Bus导出
	v.SetDefault("dbus.export", true)
	v.SetDefault("dbus.bus", "system")
	v.SetDefault("dbus.name", "vendor.fod.Inscreen1")
	v.SetDefault("dbus.object_path", "/vendor/fod/Inscreen1")
	v.SetDefault("dbus.interface", "vendor.fod.Inscreen1")
	v.SetDefault("dbus.listener_interface", "vendor.fod.InscreenCallback1")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/fod-bridge.db")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	// 事件日志
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.buffer_size", 1024)
	v.SetDefault("journal.batch_size", 64)
	v.SetDefault("journal.flush_interval", "2s")
	v.SetDefault("journal.retention", "168h")

	// 诊断服务
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")

	// WebSocket默认配置
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")

	// 安全
	v.SetDefault("security.jwt.secret", "change-me")
	v.SetDefault("security.jwt.expiry", "1h")
	v.SetDefault("security.jwt.issuer", "fod-bridge")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "fod-bridge.log")
	v.SetDefault("log.file.max_size", 20)
	v.SetDefault("log.file.max_age", 14)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.compress", true)
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Touch.Driver {
	case "ioctl", "serial", "mock":
	default:
		return fmt.Errorf("unsupported touch driver: %s", c.Touch.Driver)
	}

	for name, bus := range map[string]string{"sensor.bus": c.Sensor.Bus, "dbus.bus": c.DBus.Bus} {
		if bus != "system" && bus != "session" {
			return fmt.Errorf("%s must be system or session, got %q", name, bus)
		}
	}

	if c.Geometry.Size <= 0 {
		return fmt.Errorf("geometry.size must be positive")
	}

	if c.Journal.Enabled && c.Journal.BatchSize <= 0 {
		return fmt.Errorf("journal.batch_size must be positive")
	}

	return nil
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("配置校验失败: %v\n", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}
	})
	v.WatchConfig()
}

// ConfigFile 返回正在使用的配置文件
func ConfigFile() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}
