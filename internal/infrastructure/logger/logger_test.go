package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flowhq/flow/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	l, err := New(config.LoggerConfig{Level: "debug", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = New(config.LoggerConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestStructuredHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).WithComponent("test")

	l.LogUserAction("u1", "project_deleted", map[string]interface{}{"project_id": "p1"})
	l.LogSecurityEvent("login_failed", "", "10.0.0.1", map[string]interface{}{"email": "x@example.com"})
	l.WithRequestID("r1").LogHTTPRequest("GET", "/health", "10.0.0.1", "curl/8.0", 200, 1.5)
	l.WithRequestID("r2").WithError(errors.New("boom")).LogHTTPRequest("POST", "/api/v1/projects", "10.0.0.1", "curl/8.0", 500, 3)

	entries := logs.All()
	require.Len(t, entries, 4)

	action := entries[0].ContextMap()
	assert.Equal(t, "User action", entries[0].Message)
	assert.Equal(t, "project_deleted", action["action"])
	assert.Equal(t, "p1", action["project_id"])
	assert.Equal(t, "test", action["component"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "login_failed", entries[1].ContextMap()["security_event"])

	access := entries[2].ContextMap()
	assert.Equal(t, "HTTP request", entries[2].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
	assert.Equal(t, int64(200), access["status_code"])
	assert.Equal(t, "/health", access["path"])
	assert.Equal(t, "r1", access["request_id"])

	failed := entries[3].ContextMap()
	assert.Equal(t, "HTTP request failed", entries[3].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "boom", failed["error"])
	assert.Equal(t, "r2", failed["request_id"])
}
