package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	err := New(ErrDeviceIoctl)
	suite.Equal(ErrDeviceIoctl, err.Code)
	suite.Equal("触控模式设置失败", err.Message)
	suite.Empty(err.Details)

	err = New(ErrDeviceOpen, "/dev/xiaomi-touch", "permission denied")
	suite.Equal("/dev/xiaomi-touch; permission denied", err.Details)
}

func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrInvalidParam, "vendorCode %d 无效", 99)
	suite.Equal("vendorCode 99 无效", err.Details)
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	originalErr := errors.New("no such device")
	wrappedErr := Wrap(originalErr, ErrOverlayOpen)
	suite.Equal(ErrOverlayOpen, wrappedErr.Code)
	suite.Equal("no such device", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)

	suite.Nil(Wrap(nil, ErrUnknown))

	// 已有的AppError保留原始错误码
	appErr := New(ErrServiceUnavailable, "vendor.xiaomi.Fingerprint1")
	wrappedAppErr := Wrap(appErr, ErrServiceCall, "ExtCmd")
	suite.Equal(ErrServiceUnavailable, wrappedAppErr.Code)
	suite.Contains(wrappedAppErr.Details, "ExtCmd")
}

func (suite *ErrorsTestSuite) TestWrapf() {
	originalErr := errors.New("resource busy")
	wrappedErr := Wrapf(originalErr, ErrDeviceIoctl, "request 0x%x", 0x5400)
	suite.Equal(ErrDeviceIoctl, wrappedErr.Code)
	suite.Equal("request 0x5400: resource busy", wrappedErr.Details)
	suite.ErrorIs(wrappedErr, originalErr)
}

// 测试错误码判断（包括 fmt.Errorf 包装过的错误链）
func (suite *ErrorsTestSuite) TestIs() {
	err := New(ErrWatcherRunning)
	suite.True(Is(err, ErrWatcherRunning))
	suite.False(Is(err, ErrNotFound))
	suite.False(Is(nil, ErrWatcherRunning))
	suite.False(Is(errors.New("plain"), ErrUnknown))

	chained := fmt.Errorf("start watcher: %w", err)
	suite.True(Is(chained, ErrWatcherRunning))
	suite.Equal(ErrWatcherRunning, GetCode(chained))
}

func (suite *ErrorsTestSuite) TestGetCode() {
	suite.Equal(ErrTokenExpired, GetCode(New(ErrTokenExpired)))
	suite.Equal(ErrUnknown, GetCode(errors.New("plain")))
	suite.Equal(ErrorCode(0), GetCode(nil))
}

func (suite *ErrorsTestSuite) TestError() {
	err := &AppError{Code: ErrNotFound, Message: "资源未找到"}
	suite.Equal("[1002] 资源未找到", err.Error())

	err.Details = "event 42"
	suite.Equal("[1002] 资源未找到: event 42", err.Error())
}

func (suite *ErrorsTestSuite) TestWithCause() {
	cause := errors.New("EBADF")
	err := New(ErrOverlayRead).WithCause(cause)
	suite.Equal(cause, err.Unwrap())
	suite.Equal("EBADF", err.Details)

	// 已有Details时保留
	err2 := New(ErrOverlayRead, "fod_ui").WithCause(cause)
	suite.Equal("fod_ui", err2.Details)

	suite.Equal("x", New(ErrUnknown).WithDetails("x").Details)
}

// 测试HTTP状态码映射
func (suite *ErrorsTestSuite) TestHTTPStatus() {
	testCases := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrInvalidParam, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{ErrWatcherRunning, http.StatusConflict},
		{ErrPermissionDenied, http.StatusForbidden},
		{ErrTimeout, http.StatusRequestTimeout},
		{ErrAuthentication, http.StatusUnauthorized},
		{ErrTokenInvalid, http.StatusUnauthorized},
		{ErrRateLimitExceeded, http.StatusTooManyRequests},
		{ErrDeviceIoctl, http.StatusServiceUnavailable},
		{ErrServiceUnavailable, http.StatusServiceUnavailable},
		{ErrDatabaseConnect, http.StatusServiceUnavailable},
		{ErrListenerInvoke, http.StatusInternalServerError},
		{ErrUnknown, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		suite.Equal(tc.expected, New(tc.code).HTTPStatus(), "错误码 %d", tc.code)
	}
}

func (suite *ErrorsTestSuite) TestIsRetryable() {
	for _, code := range []ErrorCode{ErrTimeout, ErrDeviceOffline, ErrOverlayPoll, ErrServiceUnavailable, ErrDBusConnect, ErrJournalFull} {
		suite.True(IsRetryable(New(code)), "错误码 %d 应该是可重试的", code)
	}
	for _, code := range []ErrorCode{ErrInvalidParam, ErrDeviceIoctl, ErrOverlayOpen} {
		suite.False(IsRetryable(New(code)), "错误码 %d 不应该是可重试的", code)
	}
	suite.False(IsRetryable(nil))
}

func (suite *ErrorsTestSuite) TestIsCritical() {
	for _, code := range []ErrorCode{ErrOverlayOpen, ErrDBusExport, ErrDatabaseConnect, ErrConfigLoad, ErrConfigMissing} {
		suite.True(IsCritical(New(code)), "错误码 %d 应该是严重错误", code)
	}
	for _, code := range []ErrorCode{ErrDeviceIoctl, ErrListenerInvoke, ErrTimeout} {
		suite.False(IsCritical(New(code)), "错误码 %d 不应该是严重错误", code)
	}
	suite.False(IsCritical(nil))
}

// 测试调用栈捕获不包含本包帧
func (suite *ErrorsTestSuite) TestStackCapture() {
	err := New(ErrUnknown)
	suite.NotEmpty(err.Stack)
	suite.LessOrEqual(len(err.Stack), 10)
	for _, frame := range err.Stack {
		suite.NotContains(frame.Function, "fod-bridge/internal/errors.New")
	}
	suite.NotEmpty(err.GetStack())
}

func (suite *ErrorsTestSuite) TestErrorResponse() {
	err := New(ErrNotFound, "event 42")
	response := NewErrorResponse(err, "req-123")

	suite.False(response.Success)
	suite.Equal(err, response.Error)
	suite.Equal("req-123", response.RequestID)
	suite.Greater(response.Timestamp, int64(0))
}

func (suite *ErrorsTestSuite) TestUnknownErrorCode() {
	err := New(ErrorCode(99999))
	suite.Equal(ErrorCode(99999), err.Code)
	suite.Equal("未知错误", err.Message)
}

// 测试每个错误码都有消息
func (suite *ErrorsTestSuite) TestMessagesDefined() {
	codes := []ErrorCode{
		ErrDeviceOpen, ErrDeviceIoctl, ErrDeviceWrite, ErrDeviceOffline, ErrSerialTimeout,
		ErrOverlayOpen, ErrOverlayPoll, ErrOverlayRead, ErrWatcherRunning, ErrWatcherInterrupt,
		ErrServiceUnavailable, ErrServiceCall, ErrListenerInvoke, ErrDBusConnect, ErrDBusExport,
		ErrWebSocketConnect, ErrWebSocketSend, ErrWebSocketClosed, ErrMessageFormat,
		ErrDatabaseConnect, ErrDatabaseQuery, ErrDatabaseInsert, ErrDatabaseDelete, ErrJournalFull,
		ErrConfigLoad, ErrConfigParse, ErrConfigValidate, ErrConfigMissing,
		ErrAuthentication, ErrAuthorization, ErrTokenExpired, ErrTokenInvalid, ErrRateLimitExceeded, ErrEncryption,
	}
	for _, code := range codes {
		_, ok := errorMessages[code]
		suite.True(ok, "错误码 %d 缺少消息", code)
	}
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
