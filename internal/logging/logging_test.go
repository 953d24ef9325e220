package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	cases := []struct {
		env, level string
		want       zapcore.Level
	}{
		{"prod", "info", zapcore.InfoLevel},
		{"prod", "ERROR", zapcore.ErrorLevel},
		{"dev", "debug", zapcore.DebugLevel},
		{"dev", "warn", zapcore.WarnLevel},
	}
	for _, tc := range cases {
		logger, err := New(tc.env, tc.level)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(tc.want), "%s/%s should enable %s", tc.env, tc.level, tc.want)
		if tc.want > zapcore.DebugLevel {
			assert.False(t, logger.Core().Enabled(tc.want-1))
		}
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("prod", "chatty")
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "example.com", Sanitize("exam\nple.com\r"))
	assert.Equal(t, "example.com", Sanitize("example.com"))
}
