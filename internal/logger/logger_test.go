package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wfunc/fod-bridge/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}

	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

// TestBuildModules 测试模块日志器按配置创建
func TestBuildModules(t *testing.T) {
	root, modules, err := build(&config.LogConfig{
		Level:  "warn",
		Format: "json",
		Output: "stdout",
		Modules: map[string]string{
			"overlay": "debug",
		},
	})

	assert.NoError(t, err)
	assert.NotNil(t, root)
	assert.Contains(t, modules, "overlay")
	assert.True(t, modules["overlay"].Core().Enabled(zapcore.DebugLevel))
	assert.False(t, root.Core().Enabled(zapcore.InfoLevel))
}

// TestSetLevel 测试动态调整级别
func TestSetLevel(t *testing.T) {
	SetLevel("debug")
	assert.Equal(t, "debug", Level())

	SetLevel("error")
	assert.Equal(t, "error", Level())

	SetLevel("info")
}

func TestGetModuleLoggerFallback(t *testing.T) {
	assert.NotNil(t, GetModuleLogger("not-configured"))
}
