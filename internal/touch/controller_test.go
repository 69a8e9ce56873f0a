package touch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/fod-bridge/internal/config"
	"go.uber.org/zap"
)

func TestPayload(t *testing.T) {
	assert.Equal(t, [2]int32{10, 1}, Payload(DefaultFeatureSelector, true))
	assert.Equal(t, [2]int32{10, -1}, Payload(DefaultFeatureSelector, false))
}

// TestShowHideOrder 显示再隐藏，恰好两次请求，先+1后-1
func TestShowHideOrder(t *testing.T) {
	ch := NewMockChannel()
	c := NewController(ch, zap.NewNop())

	var seen []bool
	c.SetObserver(func(enabled bool, err error) {
		seen = append(seen, enabled)
	})

	c.ShowOverlay()
	c.HideOverlay()

	assert.Equal(t, []bool{true, false}, ch.Requests())
	assert.Equal(t, []bool{true, false}, seen)
	assert.Equal(t, ControllerStats{Requests: 2, LastEnabled: false}, c.Stats())
}

// TestShowHideFailedChannel 通道失效时错误被吞掉，请求照常发出
func TestShowHideFailedChannel(t *testing.T) {
	ch := NewMockChannel()
	ch.FailWith(errors.New("bad file descriptor"))
	c := NewController(ch, zap.NewNop())

	var errs []error
	c.SetObserver(func(enabled bool, err error) {
		errs = append(errs, err)
	})

	assert.NotPanics(t, func() {
		c.ShowOverlay()
		c.HideOverlay()
	})

	assert.Equal(t, []bool{true, false}, ch.Requests())
	require.Len(t, errs, 2)
	assert.Error(t, errs[0])
	assert.Equal(t, uint64(2), c.Stats().Failures)
}

// TestNoDedup 重复显示不去重
func TestNoDedup(t *testing.T) {
	ch := NewMockChannel()
	c := NewController(ch, zap.NewNop())

	c.ShowOverlay()
	c.ShowOverlay()
	c.ShowOverlay()

	assert.Equal(t, []bool{true, true, true}, ch.Requests())
}

func TestNewChannelDriver(t *testing.T) {
	ch, err := NewChannel(&config.TouchConfig{Driver: "mock"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MockChannel{}, ch)

	_, err = NewChannel(&config.TouchConfig{Driver: "spi"}, zap.NewNop())
	assert.Error(t, err)
}

func TestControllerClose(t *testing.T) {
	ch := NewMockChannel()
	c := NewController(ch, zap.NewNop())
	require.NoError(t, c.Close())
	assert.True(t, ch.Closed())
}
