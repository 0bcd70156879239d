package main

import (
	"testing"

	"github.com/magefree/solitaire-server-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		cfg  config.LoggingConfig
		want zapcore.Level
	}{
		{config.LoggingConfig{Level: "debug", Format: "console"}, zapcore.DebugLevel},
		{config.LoggingConfig{Level: "warn", Format: "json"}, zapcore.WarnLevel},
		{config.LoggingConfig{Level: "error", Format: "json"}, zapcore.ErrorLevel},
		{config.LoggingConfig{Level: "bogus", Format: "console"}, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		logger, err := initLogger(tt.cfg)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(tt.want), tt.cfg.Level)
		if tt.want > zapcore.DebugLevel {
			assert.False(t, logger.Core().Enabled(tt.want-1), tt.cfg.Level)
		}
	}
}
