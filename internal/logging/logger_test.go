package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/rcliao/chatterchain/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		verbose bool
		want    zapcore.Level
	}{
		{"defaults", config.LoggingConfig{}, false, zapcore.InfoLevel},
		{"warn json", config.LoggingConfig{Level: "warn", Format: "json"}, false, zapcore.WarnLevel},
		{"console", config.LoggingConfig{Level: "error", Format: "console"}, false, zapcore.ErrorLevel},
		{"verbose wins", config.LoggingConfig{Level: "error"}, true, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg, tt.verbose)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(config.LoggingConfig{Format: "xml"}, false)
	assert.Error(t, err)

	_, err = New(config.LoggingConfig{Level: "chatty"}, false)
	assert.Error(t, err)
}
