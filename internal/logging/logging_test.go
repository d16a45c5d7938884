package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Level(t *testing.T) {
	_, err := NewLogger(Options{Level: "loud"})
	assert.Error(t, err)

	l, err := NewLogger(Options{Level: "WARN", Service: "docflow"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestLogger_FormatsAndCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core)).With("workflow_id", "w1")

	l.Info("processed %d steps", 3)
	l.Warn("skipped step %s", "s2")
	l.Debug("step evaluated", "step_id", "s1", "met", true)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "processed 3 steps", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "w1", entries[0].ContextMap()["workflow_id"])
	assert.Equal(t, "step evaluated", entries[2].Message)
	assert.Equal(t, "s1", entries[2].ContextMap()["step_id"])
	assert.Equal(t, true, entries[2].ContextMap()["met"])
}

func TestLogger_ZapSharesCore(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := New(zap.New(core)).With("component", "http")

	zap.NewStdLog(l.Zap()).Print("tls handshake error")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "tls handshake error", entries[0].Message)
	assert.Equal(t, "http", entries[0].ContextMap()["component"])
}
