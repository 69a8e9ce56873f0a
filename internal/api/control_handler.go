package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/fod-bridge/internal/errors"
	"github.com/wfunc/fod-bridge/internal/fingerprint"
	"github.com/wfunc/fod-bridge/internal/inscreen"
	"github.com/wfunc/fod-bridge/internal/middleware"
	"go.uber.org/zap"
)

// AcquiredRequest 采集事件注入
type AcquiredRequest struct {
	AcquiredInfo *int32 `json:"acquired_info" binding:"required"`
	VendorCode   *int32 `json:"vendor_code" binding:"required"`
}

// AcquiredResponse 注入结果
type AcquiredResponse struct {
	Event   string `json:"event"`
	Handled bool   `json:"handled"`
}

// VendorErrorRequest 厂商错误注入
type VendorErrorRequest struct {
	ErrorCode  int32 `json:"error_code"`
	VendorCode int32 `json:"vendor_code"`
}

// ControlHandler 台架控制处理器
type ControlHandler struct {
	svc    *inscreen.Service
	logger *zap.Logger
}

// NewControlHandler 创建控制处理器
func NewControlHandler(svc *inscreen.Service, log *zap.Logger) *ControlHandler {
	return &ControlHandler{svc: svc, logger: log}
}

func (h *ControlHandler) audit(c *gin.Context, action string, fields ...zap.Field) {
	sub, _ := middleware.GetSubject(c)
	h.logger.Info("控制接口调用",
		append([]zap.Field{zap.String("action", action), zap.String("subject", sub)}, fields...)...)
}

// ShowOverlay 进入指纹图层触摸模式
// @Summary 显示指纹图层
// @Tags Control
// @Security BearerAuth
// @Produce json
// @Success 200 {object} Response{data=touch.ControllerStats}
// @Router /api/v1/overlay/show [post]
func (h *ControlHandler) ShowOverlay(c *gin.Context) {
	h.audit(c, "overlay_show")
	h.svc.OnShowFODView()
	ok(c, h.svc.Controller().Stats())
}

// HideOverlay 退出指纹图层触摸模式
// @Summary 隐藏指纹图层
// @Tags Control
// @Security BearerAuth
// @Produce json
// @Success 200 {object} Response{data=touch.ControllerStats}
// @Router /api/v1/overlay/hide [post]
func (h *ControlHandler) HideOverlay(c *gin.Context) {
	h.audit(c, "overlay_hide")
	h.svc.OnHideFODView()
	ok(c, h.svc.Controller().Stats())
}

// InjectAcquired 注入一次采集事件
// @Summary 注入采集事件
// @Tags Control
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body AcquiredRequest true "采集事件"
// @Success 200 {object} Response{data=AcquiredResponse}
// @Router /api/v1/acquired [post]
func (h *ControlHandler) InjectAcquired(c *gin.Context) {
	var req AcquiredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	info, code := *req.AcquiredInfo, *req.VendorCode
	h.audit(c, "acquired", zap.Int32("acquired_info", info), zap.Int32("vendor_code", code))

	handled := h.svc.HandleAcquired(info, code)
	ok(c, AcquiredResponse{
		Event:   fingerprint.Classify(info, code).String(),
		Handled: handled,
	})
}

// InjectError 注入一次厂商错误
// @Summary 注入厂商错误
// @Tags Control
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body VendorErrorRequest true "错误"
// @Success 200 {object} Response
// @Router /api/v1/vendor-error [post]
func (h *ControlHandler) InjectError(c *gin.Context) {
	var req VendorErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	h.audit(c, "vendor_error", zap.Int32("error_code", req.ErrorCode), zap.Int32("vendor_code", req.VendorCode))
	ok(c, gin.H{"handled": h.svc.HandleError(req.ErrorCode, req.VendorCode)})
}
