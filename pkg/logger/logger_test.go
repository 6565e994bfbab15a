package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_LevelByMode(t *testing.T) {
	tests := []struct {
		mode  string
		debug bool
	}{
		{"dev", true},
		{"", true},
		{"prod", false},
		{"Production", false},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			l, err := New(tt.mode)
			require.NoError(t, err)
			core := l.SugaredLogger.Desugar().Core()
			assert.Equal(t, tt.debug, core.Enabled(zapcore.DebugLevel))
			assert.True(t, core.Enabled(zapcore.InfoLevel))
		})
	}
}

func TestWith_KeepsLogger(t *testing.T) {
	l := Nop().With("component", "test")
	require.NotNil(t, l)
	l.Info("ignored", "k", "v")
}
