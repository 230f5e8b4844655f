package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{"defaults", "", "", zapcore.InfoLevel, false},
		{"json debug", "debug", "json", zapcore.DebugLevel, false},
		{"console warn", "warn", "console", zapcore.WarnLevel, false},
		{"bad level", "loud", "json", zapcore.InfoLevel, true},
		{"bad format", "info", "xml", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, l.Level())
		})
	}
}

func TestLogger_SetLevel(t *testing.T) {
	l, err := New("info", "json")
	require.NoError(t, err)

	require.NoError(t, l.SetLevel("error"))
	assert.Equal(t, zapcore.ErrorLevel, l.Level())
	assert.False(t, l.Core().Enabled(zapcore.WarnLevel))

	assert.Error(t, l.SetLevel("nope"))
	assert.Equal(t, zapcore.ErrorLevel, l.Level())
}

func TestWrap(t *testing.T) {
	l := Wrap(zaptest.NewLogger(t))
	require.NotNil(t, l.Logger)
	l.Info("wrapped logger works")
}
