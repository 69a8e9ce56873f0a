package overlay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/fod-bridge/internal/errors"
	"github.com/wfunc/fod-bridge/internal/sensor"
	"go.uber.org/zap"
)

// Sink 照明命令接收方
type Sink interface {
	Illuminate(cmd sensor.Illumination)
}

// StateHandler 每次唤醒后回调
type StateHandler func(shown bool, cmd sensor.Illumination)

// Watcher 图层状态监视器
//
// 每次唤醒恰好转发一条命令，不做去重。打开状态文件失败时记录日志并永久退出。
type Watcher struct {
	open   Opener
	sink   Sink
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	onState StateHandler

	wakes      atomic.Uint64
	waitErrors atomic.Uint64
	readErrors atomic.Uint64
	shown      atomic.Bool
	opened     atomic.Bool
	lastWake   atomic.Int64
}

// WatcherStats 监视器统计
type WatcherStats struct {
	Running    bool      `json:"running"`
	Opened     bool      `json:"opened"`
	Shown      bool      `json:"shown"`
	Wakes      uint64    `json:"wakes"`
	WaitErrors uint64    `json:"wait_errors"`
	ReadErrors uint64    `json:"read_errors"`
	LastWake   time.Time `json:"last_wake,omitempty"`
}

// NewWatcher 创建监视器
func NewWatcher(open Opener, sink Sink, log *zap.Logger) *Watcher {
	done := make(chan struct{})
	close(done)
	return &Watcher{open: open, sink: sink, logger: log, done: done}
}

// SetStateHandler 设置状态回调
func (w *Watcher) SetStateHandler(h StateHandler) {
	w.mu.Lock()
	w.onState = h
	w.mu.Unlock()
}

// Start 启动后台监视
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New(errors.ErrWatcherRunning)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.run(ctx, w.done)
	return nil
}

// Stop 停止监视并等待退出
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-done
}

// Done 监视器退出时关闭
func (w *Watcher) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(done)
	}()

	src, err := w.open()
	if err != nil {
		w.logger.Error("打开图层状态文件失败，监视器退出", zap.Error(err))
		return
	}
	defer src.Close()
	w.opened.Store(true)
	defer w.opened.Store(false)

	stop := context.AfterFunc(ctx, src.Interrupt)
	defer stop()

	w.logger.Info("图层监视器已启动")

	for {
		if err := src.Wait(); err != nil {
			if IsInterrupted(err) || ctx.Err() != nil {
				w.logger.Info("图层监视器已停止")
				return
			}
			w.waitErrors.Add(1)
			w.logger.Error("等待图层状态失败", zap.Error(err))
			continue
		}

		shown, err := src.ReadState()
		if err != nil {
			w.readErrors.Add(1)
			w.logger.Warn("读取图层状态失败，按隐藏处理", zap.Error(err))
			shown = false
		}

		w.deliver(shown)
	}
}

// deliver 转发一次唤醒
func (w *Watcher) deliver(shown bool) {
	cmd := sensor.FromOverlay(shown)

	w.wakes.Add(1)
	w.shown.Store(shown)
	w.lastWake.Store(time.Now().UnixNano())

	w.logger.Debug("图层状态", zap.Bool("shown", shown), zap.Stringer("cmd", cmd))
	w.sink.Illuminate(cmd)

	w.mu.Lock()
	h := w.onState
	w.mu.Unlock()
	if h != nil {
		h(shown, cmd)
	}
}

// Stats 获取统计
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	stats := WatcherStats{
		Running:    running,
		Opened:     w.opened.Load(),
		Shown:      w.shown.Load(),
		Wakes:      w.wakes.Load(),
		WaitErrors: w.waitErrors.Load(),
		ReadErrors: w.readErrors.Load(),
	}
	if ns := w.lastWake.Load(); ns > 0 {
		stats.LastWake = time.Unix(0, ns)
	}
	return stats
}
