package journal

import (
	"fmt"

	"github.com/wfunc/fod-bridge/internal/fingerprint"
	"github.com/wfunc/fod-bridge/internal/models"
	"github.com/wfunc/fod-bridge/internal/sensor"
	"github.com/wfunc/fod-bridge/internal/touch"
)

// OverlayEvent 图层唤醒事件
func OverlayEvent(shown bool, cmd sensor.Illumination) *models.BridgeEvent {
	value := int32(0)
	if shown {
		value = 1
	}
	return &models.BridgeEvent{
		Kind:    models.EventOverlayState,
		Value:   value,
		Detail:  cmd.String(),
		Success: true,
	}
}

// TouchModeEvent 触摸模式请求事件
func TouchModeEvent(enabled bool, err error) *models.BridgeEvent {
	ev := &models.BridgeEvent{
		Kind:    models.EventTouchMode,
		Value:   touch.Mode(enabled),
		Success: err == nil,
	}
	if err != nil {
		ev.Detail = truncate(err.Error())
	}
	return ev
}

// FingerEvent 手指事件
func FingerEvent(ev fingerprint.Event, err error) *models.BridgeEvent {
	kind := models.EventFingerDown
	code := fingerprint.VendorFingerDown
	if ev == fingerprint.EventFingerUp {
		kind = models.EventFingerUp
		code = fingerprint.VendorFingerUp
	}

	out := &models.BridgeEvent{Kind: kind, Value: code, Success: err == nil}
	if err != nil {
		out.Detail = truncate(err.Error())
	}
	return out
}

// VendorErrorEvent 厂商错误事件
func VendorErrorEvent(errorCode, vendorCode int32) *models.BridgeEvent {
	return &models.BridgeEvent{
		Kind:    models.EventVendorError,
		Value:   errorCode,
		Detail:  fmt.Sprintf("vendor_code=%d", vendorCode),
		Success: false,
	}
}

func truncate(s string) string {
	const maxDetail = 255
	if len(s) <= maxDetail {
		return s
	}
	return s[:maxDetail]
}
