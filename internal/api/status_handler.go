package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/fod-bridge/internal/inscreen"
)

// SensorInfo 传感器信息
type SensorInfo struct {
	Geometry              inscreen.Geometry `json:"geometry"`
	LongPressEnabled      bool              `json:"long_press_enabled"`
	DimAmount             int32             `json:"dim_amount"`
	ShouldBoostBrightness bool              `json:"should_boost_brightness"`
}

// StatusHandler 状态处理器
type StatusHandler struct {
	bridge Bridge
}

// NewStatusHandler 创建状态处理器
func NewStatusHandler(b Bridge) *StatusHandler {
	return &StatusHandler{bridge: b}
}

// GetStatus 桥接运行状态
// @Summary 运行状态
// @Tags Status
// @Produce json
// @Success 200 {object} Response{data=bridge.Status}
// @Router /api/v1/status [get]
func (h *StatusHandler) GetStatus(c *gin.Context) {
	ok(c, h.bridge.Status())
}

// GetSensor 传感器位置与显示参数
// @Summary 传感器信息
// @Tags Status
// @Produce json
// @Success 200 {object} Response{data=SensorInfo}
// @Router /api/v1/sensor [get]
func (h *StatusHandler) GetSensor(c *gin.Context) {
	svc := h.bridge.Service()
	ok(c, SensorInfo{
		Geometry:              svc.Geometry(),
		LongPressEnabled:      svc.LongPressEnabled(),
		DimAmount:             svc.GetDimAmount(0),
		ShouldBoostBrightness: svc.ShouldBoostBrightness(),
	})
}
