package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		level    zapcore.Level
		encoding string
	}{
		{"default", Options{}, zapcore.WarnLevel, "console"},
		{"verbose", Options{Verbose: true}, zapcore.DebugLevel, "console"},
		{"json", Options{JSON: true}, zapcore.WarnLevel, "json"},
		{"verbose json", Options{Verbose: true, JSON: true}, zapcore.DebugLevel, "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config(tt.opts)
			assert.Equal(t, tt.level, cfg.Level.Level())
			assert.Equal(t, tt.encoding, cfg.Encoding)
			assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New(Options{})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
