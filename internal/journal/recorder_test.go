package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/fod-bridge/internal/config"
	"github.com/wfunc/fod-bridge/internal/fingerprint"
	"github.com/wfunc/fod-bridge/internal/models"
	"github.com/wfunc/fod-bridge/internal/repository"
	"github.com/wfunc/fod-bridge/internal/sensor"
	"go.uber.org/zap"
)

// failingStore 写入总是失败
type failingStore struct{}

func (failingStore) CreateBatch(ctx context.Context, events []*models.BridgeEvent) error {
	return errors.New("disk full")
}

func (failingStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func newRepo(t *testing.T) *repository.EventRepository {
	return repository.NewEventRepository(repository.TestDB(t))
}

func count(t *testing.T, repo *repository.EventRepository) int64 {
	t.Helper()
	_, total, err := repo.Query(context.Background(), &models.EventQuery{})
	require.NoError(t, err)
	return total
}

// TestFlushOnBatchSize 达到批量大小立即写入
func TestFlushOnBatchSize(t *testing.T) {
	repo := newRepo(t)
	r := NewRecorder(repo, &config.JournalConfig{BufferSize: 16, BatchSize: 2, FlushInterval: time.Hour}, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	assert.True(t, r.Record(OverlayEvent(true, sensor.IlluminationFOD)))
	assert.True(t, r.Record(OverlayEvent(false, sensor.IlluminationNone)))

	assert.Eventually(t, func() bool { return count(t, repo) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(2), r.Stats().Written)
}

func TestFlushOnInterval(t *testing.T) {
	repo := newRepo(t)
	r := NewRecorder(repo, &config.JournalConfig{BufferSize: 16, BatchSize: 100, FlushInterval: 20 * time.Millisecond}, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	r.Record(TouchModeEvent(true, nil))

	assert.Eventually(t, func() bool { return count(t, repo) == 1 }, time.Second, 10*time.Millisecond)
}

// TestStopDrains 停止时写入剩余事件
func TestStopDrains(t *testing.T) {
	repo := newRepo(t)
	r := NewRecorder(repo, &config.JournalConfig{BufferSize: 16, BatchSize: 100, FlushInterval: time.Hour}, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))

	for i := 0; i < 5; i++ {
		r.Record(FingerEvent(fingerprint.EventFingerDown, nil))
	}
	r.Stop()

	assert.Equal(t, int64(5), count(t, repo))
}

// TestDropWhenFull 缓冲区满时丢弃而不阻塞
func TestDropWhenFull(t *testing.T) {
	r := NewRecorder(newRepo(t), &config.JournalConfig{BufferSize: 2, BatchSize: 10}, zap.NewNop())

	assert.True(t, r.Record(VendorErrorEvent(1, 0)))
	assert.True(t, r.Record(VendorErrorEvent(2, 0)))
	assert.False(t, r.Record(VendorErrorEvent(3, 0)))

	stats := r.Stats()
	assert.Equal(t, uint64(2), stats.Recorded)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 2, stats.Pending)
}

func TestStoreFailureCounted(t *testing.T) {
	r := NewRecorder(failingStore{}, &config.JournalConfig{BufferSize: 4, BatchSize: 1}, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	r.Record(TouchModeEvent(false, errors.New("EBADF")))
	assert.Eventually(t, func() bool { return r.Stats().Failed == 1 }, time.Second, 10*time.Millisecond)
}

// TestRetentionPrune 启动时清理过期事件
func TestRetentionPrune(t *testing.T) {
	repo := newRepo(t)
	old := OverlayEvent(true, sensor.IlluminationFOD)
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.Create(context.Background(), old))

	r := NewRecorder(repo, &config.JournalConfig{BufferSize: 4, BatchSize: 1, Retention: 24 * time.Hour}, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	assert.Eventually(t, func() bool { return r.Stats().Pruned == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(0), count(t, repo))
}

func TestEventBuilders(t *testing.T) {
	ev := OverlayEvent(true, sensor.IlluminationFOD)
	assert.Equal(t, models.EventOverlayState, ev.Kind)
	assert.Equal(t, int32(1), ev.Value)
	assert.Equal(t, "FOD_ON", ev.Detail)

	ev = TouchModeEvent(false, errors.New("bad fd"))
	assert.Equal(t, int32(-1), ev.Value)
	assert.False(t, ev.Success)
	assert.Equal(t, "bad fd", ev.Detail)

	ev = FingerEvent(fingerprint.EventFingerUp, nil)
	assert.Equal(t, models.EventFingerUp, ev.Kind)
	assert.Equal(t, int32(23), ev.Value)

	ev = VendorErrorEvent(5, 7)
	assert.Equal(t, "vendor_code=7", ev.Detail)
}

func TestStartTwice(t *testing.T) {
	r := NewRecorder(newRepo(t), &config.JournalConfig{}, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()
	assert.Error(t, r.Start(context.Background()))
}
