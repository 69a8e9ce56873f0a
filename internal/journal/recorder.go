// Package journal 异步记录桥接事件，按批量或间隔写入数据库。
package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/fod-bridge/internal/config"
	"github.com/wfunc/fod-bridge/internal/errors"
	"github.com/wfunc/fod-bridge/internal/models"
	"go.uber.org/zap"
)

const pruneInterval = time.Hour

// Store 事件存储
type Store interface {
	CreateBatch(ctx context.Context, events []*models.BridgeEvent) error
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Recorder 非阻塞事件记录器
//
// 缓冲区满时丢弃事件并计数，不会阻塞调用方。
type Recorder struct {
	store         Store
	events        chan *models.BridgeEvent
	batchSize     int
	flushInterval time.Duration
	retention     time.Duration
	logger        *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	recorded atomic.Uint64
	written  atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
	pruned   atomic.Uint64
}

// RecorderStats 记录器统计
type RecorderStats struct {
	Recorded uint64 `json:"recorded"`
	Written  uint64 `json:"written"`
	Dropped  uint64 `json:"dropped"`
	Failed   uint64 `json:"failed"`
	Pruned   uint64 `json:"pruned"`
	Pending  int    `json:"pending"`
}

// NewRecorder 创建记录器
func NewRecorder(store Store, cfg *config.JournalConfig, log *zap.Logger) *Recorder {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}

	done := make(chan struct{})
	close(done)
	return &Recorder{
		store:         store,
		events:        make(chan *models.BridgeEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		retention:     cfg.Retention,
		logger:        log,
		done:          done,
	}
}

// Record 提交事件，缓冲区满时返回 false
func (r *Recorder) Record(event *models.BridgeEvent) bool {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	select {
	case r.events <- event:
		r.recorded.Add(1)
		return true
	default:
		if r.dropped.Add(1)%100 == 1 {
			r.logger.Warn("事件缓冲区已满，丢弃事件",
				zap.String("kind", string(event.Kind)),
				zap.Uint64("dropped", r.dropped.Load()),
				zap.Error(errors.New(errors.ErrJournalFull)))
		}
		return false
	}
}

// Start 启动写入协程
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New(errors.ErrAlreadyExists, "journal recorder running")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.loop(ctx, r.done)
	return nil
}

// Stop 停止并写入剩余事件
func (r *Recorder) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-done
}

func (r *Recorder) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(done)
	}()

	flushTicker := time.NewTicker(r.flushInterval)
	defer flushTicker.Stop()

	var pruneC <-chan time.Time
	if r.retention > 0 {
		pruneTicker := time.NewTicker(pruneInterval)
		defer pruneTicker.Stop()
		pruneC = pruneTicker.C
		r.prune(ctx)
	}

	batch := make([]*models.BridgeEvent, 0, r.batchSize)
	for {
		select {
		case <-ctx.Done():
			// 排空缓冲区
			for {
				select {
				case ev := <-r.events:
					batch = append(batch, ev)
				default:
					r.flush(context.Background(), batch)
					return
				}
			}
		case ev := <-r.events:
			batch = append(batch, ev)
			if len(batch) >= r.batchSize {
				r.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-flushTicker.C:
			if len(batch) > 0 {
				r.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-pruneC:
			r.prune(ctx)
		}
	}
}

// flush 写入一批事件，失败时丢弃该批
func (r *Recorder) flush(ctx context.Context, batch []*models.BridgeEvent) {
	if len(batch) == 0 {
		return
	}

	out := make([]*models.BridgeEvent, len(batch))
	copy(out, batch)

	if err := r.store.CreateBatch(ctx, out); err != nil {
		r.failed.Add(uint64(len(out)))
		r.logger.Error("写入事件失败", zap.Int("count", len(out)), zap.Error(err))
		return
	}
	r.written.Add(uint64(len(out)))
	r.logger.Debug("事件已写入", zap.Int("count", len(out)))
}

// prune 删除超过保留期的事件
func (r *Recorder) prune(ctx context.Context) {
	n, err := r.store.DeleteBefore(ctx, time.Now().Add(-r.retention))
	if err != nil {
		r.logger.Error("清理过期事件失败", zap.Error(err))
		return
	}
	if n > 0 {
		r.pruned.Add(uint64(n))
		r.logger.Info("已清理过期事件", zap.Int64("count", n), zap.Duration("retention", r.retention))
	}
}

// Stats 获取统计
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Recorded: r.recorded.Load(),
		Written:  r.written.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
		Pruned:   r.pruned.Load(),
		Pending:  len(r.events),
	}
}
