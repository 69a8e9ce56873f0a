package inscreen

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/fod-bridge/internal/fingerprint"
	"github.com/wfunc/fod-bridge/internal/overlay"
	"github.com/wfunc/fod-bridge/internal/sensor"
	"github.com/wfunc/fod-bridge/internal/touch"
	"go.uber.org/zap"
)

type listenerStub struct {
	down, up int
}

func (l *listenerStub) OnFingerDown() error {
	l.down++
	return nil
}

func (l *listenerStub) OnFingerUp() error {
	l.up++
	return nil
}

type ServiceTestSuite struct {
	suite.Suite
	ch  *touch.MockChannel
	svc *Service
}

func (s *ServiceTestSuite) SetupTest() {
	s.ch = touch.NewMockChannel()
	s.svc = New(Options{
		Controller: touch.NewController(s.ch, zap.NewNop()),
		Dispatcher: fingerprint.NewDispatcher(zap.NewNop()),
		Geometry:   DefaultGeometry(),
	})
}

func (s *ServiceTestSuite) TestGeometry() {
	s.Equal(int32(445), s.svc.GetPositionX())
	s.Equal(int32(1931), s.svc.GetPositionY())
	s.Equal(int32(190), s.svc.GetSize())
}

func (s *ServiceTestSuite) TestPolicyStubs() {
	s.Equal(int32(0), s.svc.GetDimAmount(255))
	s.False(s.svc.ShouldBoostBrightness())

	s.NotPanics(func() {
		s.svc.OnStartEnroll()
		s.svc.OnFinishEnroll()
		s.svc.OnPress()
		s.svc.OnRelease()
	})
	s.Empty(s.ch.Requests())

	s.svc.SetLongPressEnabled(true)
	s.True(s.svc.LongPressEnabled())
}

func (s *ServiceTestSuite) TestShowHide() {
	s.svc.OnShowFODView()
	s.svc.OnHideFODView()
	s.Equal([]bool{true, false}, s.ch.Requests())
}

func (s *ServiceTestSuite) TestCallbackRoundTrip() {
	l := &listenerStub{}
	s.False(s.svc.HandleAcquired(6, 22))

	s.svc.SetCallback(l)
	s.True(s.svc.HandleAcquired(6, 22))
	s.True(s.svc.HandleAcquired(6, 23))
	s.False(s.svc.HandleError(1, 0))
	s.Equal(1, l.down)
	s.Equal(1, l.up)

	s.svc.SetCallback(nil)
	s.False(s.svc.HandleAcquired(6, 22))
}

func (s *ServiceTestSuite) TestStartWithoutWatcher() {
	s.NoError(s.svc.Start(context.Background()))
	s.NoError(s.svc.Close())
	s.True(s.ch.Closed())

	// 重复关闭无副作用
	s.NoError(s.svc.Close())
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

type sinkFunc func(sensor.Illumination)

func (f sinkFunc) Illuminate(cmd sensor.Illumination) { f(cmd) }

// TestStartOwnsWatcher 服务关闭时停止监视器
func TestStartOwnsWatcher(t *testing.T) {
	opened := make(chan struct{})
	w := overlay.NewWatcher(func() (overlay.Source, error) {
		close(opened)
		return nil, errors.New("no such file")
	}, sinkFunc(func(sensor.Illumination) {}), zap.NewNop())

	svc := New(Options{
		Controller: touch.NewController(touch.NewMockChannel(), zap.NewNop()),
		Dispatcher: fingerprint.NewDispatcher(zap.NewNop()),
		Watcher:    w,
		Geometry:   DefaultGeometry(),
	})

	require.NoError(t, svc.Start(context.Background()))
	<-opened
	require.NoError(t, svc.Close())

	select {
	case <-w.Done():
	default:
		t.Fatal("watcher still running after Close")
	}
}

// fakeRemote 记录远程调用
type fakeRemote struct {
	methods []string
	err     error
}

func (f *fakeRemote) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	f.methods = append(f.methods, method)
	return &dbus.Call{Method: method, Err: f.err}
}

func TestRemoteListener(t *testing.T) {
	remote := &fakeRemote{}
	l := newRemoteListener(remote, "vendor.fod.InscreenCallback1")

	d := fingerprint.NewDispatcher(zap.NewNop())
	d.SetListener(l)

	assert.True(t, d.HandleAcquired(6, 22))
	assert.True(t, d.HandleAcquired(6, 23))
	assert.Equal(t, []string{
		"vendor.fod.InscreenCallback1.OnFingerDown",
		"vendor.fod.InscreenCallback1.OnFingerUp",
	}, remote.methods)

	// 远程失败不影响结果
	remote.err = errors.New("org.freedesktop.DBus.Error.ServiceUnknown")
	assert.True(t, d.HandleAcquired(6, 22))
}

func TestDBusObjectMethods(t *testing.T) {
	ch := touch.NewMockChannel()
	svc := New(Options{
		Controller: touch.NewController(ch, zap.NewNop()),
		Dispatcher: fingerprint.NewDispatcher(zap.NewNop()),
		Geometry:   Geometry{X: 1, Y: 2, Size: 3},
	})
	obj := &dbusObject{svc: svc, listenerI: "vendor.fod.InscreenCallback1", logger: zap.NewNop()}

	x, derr := obj.GetPositionX()
	assert.Nil(t, derr)
	assert.Equal(t, int32(1), x)

	size, _ := obj.GetSize()
	assert.Equal(t, int32(3), size)

	assert.Nil(t, obj.OnShowFODView())
	assert.Nil(t, obj.OnHideFODView())
	assert.Equal(t, []bool{true, false}, ch.Requests())

	svc.SetCallback(&listenerStub{})
	assert.Nil(t, obj.SetCallback(":1.42", "/"))
	handled, _ := obj.HandleAcquired(6, 22)
	assert.False(t, handled)

	assert.NotNil(t, obj.SetCallback(":1.42", "not/a/path"))

	dim, _ := obj.GetDimAmount(100)
	assert.Equal(t, int32(0), dim)
	boost, _ := obj.ShouldBoostBrightness()
	assert.False(t, boost)
}
