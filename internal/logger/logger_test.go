package logger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/xraph/binder/internal/logger"
)

// TestNoopLogger ensures noop logger implements interface correctly.
func TestNoopLogger(t *testing.T) {
	noopLog := logger.NewNoopLogger()

	var _ logger.Logger = noopLog

	t.Run("BasicLogging", func(t *testing.T) {
		noopLog.Debug("debug message")
		noopLog.Info("info message")
		noopLog.Warn("warn message")
		noopLog.Error("error message")

		noopLog.Debugf("debug %s", "formatted")
		noopLog.Infof("info %d", 42)
		noopLog.Warnf("warn %v", true)
		noopLog.Errorf("error %s", "test")
	})

	t.Run("WithMethods", func(t *testing.T) {
		withFieldsLog := noopLog.With(logger.String("key", "value"))
		namedLog := noopLog.Named("test")

		assert.NotNil(t, withFieldsLog)
		assert.NotNil(t, namedLog)
		assert.NoError(t, noopLog.Sync())
	})
}

func TestTestLogger(t *testing.T) {
	log := logger.NewTestLogger()

	log.Info("binding committed", logger.Binding("comp/env/ds"), logger.Unit("app/web"))
	log.Warn("deferred reference failed", logger.Error(errors.New("boom")))
	log.Named("resolver").Debug("fallback step", logger.Duration("elapsed", time.Millisecond))

	assert.Equal(t, 3, log.Len())
	assert.Equal(t, []string{"binding committed"}, log.Messages(zapcore.InfoLevel))
	assert.Equal(t, []string{"deferred reference failed"}, log.Messages(zapcore.WarnLevel))
	assert.Equal(t, 1, log.Count("fallback step"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.ParseLevel(tt.in))
		})
	}
}

func TestFieldValues(t *testing.T) {
	assert.Equal(t, "binding", logger.Binding("x").Key())
	assert.Equal(t, "x", logger.Binding("x").Value())
	assert.Equal(t, int64(7), logger.Int("n", 7).Value())
	assert.Equal(t, "scope", logger.Scope("app").ZapField().Key)
}
