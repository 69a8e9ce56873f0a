package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/wfunc/fod-bridge/internal/api"
	"github.com/wfunc/fod-bridge/internal/auth"
	"github.com/wfunc/fod-bridge/internal/bridge"
	"github.com/wfunc/fod-bridge/internal/config"
	"github.com/wfunc/fod-bridge/internal/errors"
	"github.com/wfunc/fod-bridge/internal/logger"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 守护进程
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	manager *bridge.Manager
	http    *http.Server
	httpErr chan error
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
		hashPass    = flag.String("hash-password", "", "生成管理员口令哈希后退出")
	)
	flag.Parse()

	if *hashPass != "" {
		hash, err := auth.HashPassword(*hashPass, nil)
		if err != nil {
			fmt.Printf("生成口令哈希失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		os.Exit(0)
	}

	if *showVersion {
		printVersion()
		os.Exit(0)
	}
	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	setupSystem(&cfg.System)

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("创建桥接服务失败", zap.Error(err))
	}
	if err := server.Start(); err != nil {
		logger.Fatal("桥接服务启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("桥接服务关闭失败", zap.Error(err))
		logger.Cleanup()
		os.Exit(1)
	}
	logger.Info("桥接服务已安全关闭")
}

// NewServer 创建守护进程实例
func NewServer(cfg *config.Config) (*Server, error) {
	log := logger.GetModuleLogger("bridge")

	manager, err := bridge.New(cfg, bridge.Options{}, log)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:     cfg,
		logger:  logger.GetLogger(),
		manager: manager,
		httpErr: make(chan error, 1),
	}, nil
}

// Start 启动桥接和诊断服务
func (s *Server) Start() error {
	s.logger.Info("正在启动屏下指纹桥接...",
		zap.String("version", Version),
		zap.String("config", config.ConfigFile()))

	if err := s.manager.Start(context.Background()); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "启动桥接失败")
	}

	if s.cfg.Server.Enabled {
		s.startHTTP()
	}

	config.Watch(func(newCfg *config.Config) {
		s.reloadConfig(newCfg)
	})
	return nil
}

// startHTTP 启动诊断HTTP服务
func (s *Server) startHTTP() {
	router := api.NewRouter(s.manager, s.cfg, logger.GetModuleLogger("api"))
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))

	s.http = &http.Server{
		Addr:         addr,
		Handler:      router.Engine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go func() {
		s.logger.Info("诊断服务已启动", zap.String("addr", addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.httpErr <- err
		}
	}()
}

// WaitForShutdown 等待退出信号或HTTP服务异常
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case err := <-s.httpErr:
		s.logger.Error("诊断服务异常退出", zap.Error(err))
	}
}

// Shutdown 优雅关闭
func (s *Server) Shutdown() error {
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var shutdownErr error
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Warn("关闭诊断服务超时", zap.Error(err))
			shutdownErr = errors.Wrap(err, errors.ErrTimeout, "http shutdown")
		}
	}

	done := make(chan struct{})
	go func() {
		s.manager.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return errors.New(errors.ErrTimeout, "关闭桥接超时")
	}
	return shutdownErr
}

// reloadConfig 热更新日志级别，其余配置需重启生效
func (s *Server) reloadConfig(newCfg *config.Config) {
	if newCfg.Log.Level != s.cfg.Log.Level {
		logger.SetLevel(newCfg.Log.Level)
		s.logger.Info("日志级别已更新", zap.String("level", newCfg.Log.Level))
	}
	s.cfg.Log.Level = newCfg.Log.Level
	s.logger.Info("配置文件已变更，除日志级别外需重启生效")
}

// setupSystem 设置系统参数
func setupSystem(cfg *config.SystemConfig) {
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		}
	}
	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
}

func printVersion() {
	fmt.Printf("fodbridged 屏下指纹桥接\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func printHelp() {
	fmt.Println("fodbridged 屏下指纹桥接")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  fodbridged [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  FOD_BRIDGE_*           覆盖配置项，例如 FOD_BRIDGE_TOUCH_DRIVER=mock")
}
