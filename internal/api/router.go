// Package api 诊断与控制HTTP接口。
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/fod-bridge/internal/auth"
	"github.com/wfunc/fod-bridge/internal/bridge"
	"github.com/wfunc/fod-bridge/internal/config"
	"github.com/wfunc/fod-bridge/internal/errors"
	"github.com/wfunc/fod-bridge/internal/inscreen"
	"github.com/wfunc/fod-bridge/internal/middleware"
	"github.com/wfunc/fod-bridge/internal/repository"
	ws "github.com/wfunc/fod-bridge/internal/websocket"
	"go.uber.org/zap"
)

// Bridge 路由依赖的桥接能力
type Bridge interface {
	Status() bridge.Status
	Service() *inscreen.Service
	Hub() *ws.Hub
	Events() *repository.EventRepository
}

// Router API路由器
type Router struct {
	engine         *gin.Engine
	bridge         Bridge
	cfg            *config.Config
	tokens         *auth.TokenManager
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
	startTime      time.Time
}

// NewRouter 创建路由器
func NewRouter(b Bridge, cfg *config.Config, log *zap.Logger) *Router {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.RequestLogger(log))

	tokens := auth.NewTokenManager(&cfg.Security.JWT)
	r := &Router{
		engine:         engine,
		bridge:         b,
		cfg:            cfg,
		tokens:         tokens,
		authMiddleware: middleware.NewAuthMiddleware(tokens),
		log:            log,
		startTime:      time.Now(),
	}

	r.setupRoutes()
	return r
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.healthCheck)

	authHandler := NewAuthHandler(r.tokens, r.cfg.Security.AdminPasswordHash, r.log)
	statusHandler := NewStatusHandler(r.bridge)
	eventHandler := NewEventHandler(r.bridge.Events())
	controlHandler := NewControlHandler(r.bridge.Service(), r.log)

	v1 := r.engine.Group("/api/v1")
	{
		v1.POST("/auth/token", authHandler.IssueToken)

		v1.GET("/status", statusHandler.GetStatus)
		v1.GET("/sensor", statusHandler.GetSensor)

		v1.GET("/events", eventHandler.ListEvents)
		v1.GET("/events/stats", eventHandler.EventStats)

		// 控制接口需要管理员令牌
		control := v1.Group("")
		control.Use(r.authMiddleware.RequireRole(auth.RoleAdmin))
		{
			control.POST("/overlay/show", controlHandler.ShowOverlay)
			control.POST("/overlay/hide", controlHandler.HideOverlay)
			control.POST("/acquired", controlHandler.InjectAcquired)
			control.POST("/vendor-error", controlHandler.InjectError)
		}
	}

	wsPath := r.cfg.WebSocket.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.engine.GET(wsPath, NewWebSocketHandler(r.bridge.Hub(), &r.cfg.WebSocket, r.log).Connect)

	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	r.engine.NoRoute(func(c *gin.Context) {
		fail(c, errors.New(errors.ErrNotFound, c.Request.URL.Path))
	})
}

// healthCheck 健康检查
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (r *Router) healthCheck(c *gin.Context) {
	st := r.bridge.Status()
	status := "ok"
	code := http.StatusOK
	if !st.Running {
		status = "stopped"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"uptime":  time.Since(r.startTime).Truncate(time.Second).String(),
		"time":    time.Now().Unix(),
		"service": "fodbridged",
	})
}

// Engine 获取Gin引擎
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Response 成功响应
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func fail(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus(), errors.NewErrorResponse(err, c.GetHeader("X-Request-ID")))
}
