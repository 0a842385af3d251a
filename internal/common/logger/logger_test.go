package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestZapWrapper_FieldsAndComponent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := ForComponent(NewZapAdapter(zap.New(core)), "step-controller")

	log.Info("advanced", map[string]interface{}{"step": 2})
	log.WithError(errors.New("boom")).Error("persist failed", map[string]interface{}{
		"cause": errors.New("timeout"),
	})

	entries := logs.All()
	assert.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "step-controller", first["component"])
	assert.EqualValues(t, 2, first["step"])

	second := entries[1].ContextMap()
	assert.Equal(t, "boom", second["error"])
	assert.Equal(t, "timeout", second["cause"])
}

func TestForComponent_NilLogger(t *testing.T) {
	log := ForComponent(nil, "gate")
	assert.NotPanics(t, func() {
		log.Debug("noop", nil)
	})
}
