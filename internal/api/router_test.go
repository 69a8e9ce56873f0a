package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/fod-bridge/internal/auth"
	"github.com/wfunc/fod-bridge/internal/bridge"
	"github.com/wfunc/fod-bridge/internal/config"
	"github.com/wfunc/fod-bridge/internal/touch"
	ws "github.com/wfunc/fod-bridge/internal/websocket"
	"go.uber.org/zap"
)

const adminPassword = "bench-pass"

type nopSensor struct{}

func (nopSensor) ExtCmd(cmd, param int32) error { return nil }

type countingListener struct {
	mu   sync.Mutex
	down int
}

func (l *countingListener) OnFingerDown() error { l.mu.Lock(); l.down++; l.mu.Unlock(); return nil }
func (l *countingListener) OnFingerUp() error   { return nil }

type RouterTestSuite struct {
	suite.Suite
	ch      *touch.MockChannel
	manager *bridge.Manager
	router  *Router
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashPassword(adminPassword, &auth.PasswordConfig{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16})
	s.Require().NoError(err)

	cfg := &config.Config{
		Touch:    config.TouchConfig{Driver: "mock"},
		Geometry: config.GeometryConfig{X: 445, Y: 1931, Size: 190},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", MaxIdleConns: 1, MaxOpenConns: 1, AutoMigrate: true},
		Journal:  config.JournalConfig{Enabled: true, BufferSize: 64, BatchSize: 1, FlushInterval: 10 * time.Millisecond},
		Server:   config.ServerConfig{Mode: gin.TestMode},
		WebSocket: config.WebSocketConfig{
			Path:         "/ws",
			PingInterval: time.Second,
			PongTimeout:  2 * time.Second,
			WriteTimeout: time.Second,
		},
		Security: config.SecurityConfig{
			JWT:               config.JWTConfig{Secret: "test-secret", Expiry: time.Minute},
			AdminPasswordHash: hash,
		},
	}

	s.ch = touch.NewMockChannel()
	m, err := bridge.New(cfg, bridge.Options{Channel: s.ch, SensorService: nopSensor{}}, zap.NewNop())
	s.Require().NoError(err)
	s.Require().NoError(m.Start(context.Background()))
	s.manager = m
	s.router = NewRouter(m, cfg, zap.NewNop())
}

func (s *RouterTestSuite) TearDownTest() {
	s.manager.Stop()
}

func (s *RouterTestSuite) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.Engine().ServeHTTP(w, req)
	return w
}

func (s *RouterTestSuite) decode(w *httptest.ResponseRecorder, out interface{}) {
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().True(resp.Success, w.Body.String())
	if out != nil {
		s.Require().NoError(json.Unmarshal(resp.Data, out))
	}
}

func (s *RouterTestSuite) login() string {
	w := s.request(http.MethodPost, "/api/v1/auth/token", "", TokenRequest{Password: adminPassword})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var tok TokenResponse
	s.decode(w, &tok)
	s.Equal("Bearer", tok.TokenType)
	return tok.Token
}

func (s *RouterTestSuite) TestHealth() {
	w := s.request(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"ok"`)
}

func (s *RouterTestSuite) TestStatusAndSensor() {
	w := s.request(http.MethodGet, "/api/v1/status", "", nil)
	s.Equal(http.StatusOK, w.Code)
	var st bridge.Status
	s.decode(w, &st)
	s.True(st.Running)

	w = s.request(http.MethodGet, "/api/v1/sensor", "", nil)
	var info SensorInfo
	s.decode(w, &info)
	s.Equal(int32(445), info.Geometry.X)
	s.Equal(int32(1931), info.Geometry.Y)
	s.Equal(int32(190), info.Geometry.Size)
	s.Zero(info.DimAmount)
	s.False(info.ShouldBoostBrightness)
}

func (s *RouterTestSuite) TestLoginWrongPassword() {
	w := s.request(http.MethodPost, "/api/v1/auth/token", "", TokenRequest{Password: "nope"})
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.request(http.MethodPost, "/api/v1/auth/token", "", map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)
}

// TestControlRequiresToken 控制接口需要管理员令牌
func (s *RouterTestSuite) TestControlRequiresToken() {
	w := s.request(http.MethodPost, "/api/v1/overlay/show", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Empty(s.ch.Requests())
}

func (s *RouterTestSuite) TestOverlayShowHide() {
	token := s.login()

	w := s.request(http.MethodPost, "/api/v1/overlay/show", token, nil)
	s.Equal(http.StatusOK, w.Code)
	var stats touch.ControllerStats
	s.decode(w, &stats)
	s.True(stats.LastEnabled)

	w = s.request(http.MethodPost, "/api/v1/overlay/hide", token, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal([]bool{true, false}, s.ch.Requests())
}

func (s *RouterTestSuite) TestInjectAcquired() {
	token := s.login()
	l := &countingListener{}
	s.manager.Service().SetCallback(l)

	w := s.request(http.MethodPost, "/api/v1/acquired", token, map[string]int32{"acquired_info": 6, "vendor_code": 22})
	s.Equal(http.StatusOK, w.Code)
	var resp AcquiredResponse
	s.decode(w, &resp)
	s.Equal("finger_down", resp.Event)
	s.True(resp.Handled)
	s.Equal(1, l.down)

	w = s.request(http.MethodPost, "/api/v1/acquired", token, map[string]int32{"acquired_info": 6})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestEventsJournal() {
	token := s.login()
	s.request(http.MethodPost, "/api/v1/overlay/show", token, nil)
	s.request(http.MethodPost, "/api/v1/vendor-error", token, VendorErrorRequest{ErrorCode: 5, VendorCode: 1})

	s.Eventually(func() bool {
		w := s.request(http.MethodGet, "/api/v1/events", "", nil)
		var page EventPage
		s.decode(w, &page)
		return page.Total == 2
	}, time.Second, 20*time.Millisecond)

	w := s.request(http.MethodGet, "/api/v1/events?kind=touch_mode&limit=10", "", nil)
	var page EventPage
	s.decode(w, &page)
	s.Require().Len(page.Items, 1)
	s.True(page.Items[0].Success)

	w = s.request(http.MethodGet, "/api/v1/events/stats", "", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodGet, "/api/v1/events?start_time=yesterday", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestOpenAPIAndNotFound() {
	w := s.request(http.MethodGet, "/openapi", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "openapi: 3.0.3")

	w = s.request(http.MethodGet, "/nope", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

// TestWebSocketReceivesEvents 控制操作推送到WebSocket客户端
func (s *RouterTestSuite) TestWebSocketReceivesEvents() {
	srv := httptest.NewServer(s.router.Engine())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	s.Require().NoError(err)
	defer conn.Close()

	read := func() ws.Message {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg ws.Message
		s.Require().NoError(conn.ReadJSON(&msg))
		return msg
	}
	s.Equal(ws.MessageTypeConnected, read().Type)

	s.manager.Service().OnShowFODView()
	s.Equal(ws.MessageTypeTouchMode, read().Type)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
