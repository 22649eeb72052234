package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Additional-Code/florex/internal/config"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		obs      config.Observability
		enabled  zapcore.Level
		disabled zapcore.Level
	}{
		{name: "json debug", obs: config.Observability{LogLevel: "debug", LogEncoding: "json"}, enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel - 1},
		{name: "console warn", obs: config.Observability{LogLevel: "warn", LogEncoding: "console"}, enabled: zapcore.WarnLevel, disabled: zapcore.InfoLevel},
		{name: "unknown level falls back to info", obs: config.Observability{LogLevel: "loud"}, enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.obs.ServiceName = "florex"
			logger, err := Build(tt.obs)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.disabled))
		})
	}
}
