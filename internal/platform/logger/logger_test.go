package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_LevelsByEnv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env     string
		debugOn bool
		infoOn  bool
	}{
		{env: "local", debugOn: true, infoOn: true},
		{env: "dev", debugOn: true, infoOn: true},
		{env: "production", debugOn: false, infoOn: true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Parallel()

			log, err := New(tt.env)
			require.NoError(t, err)

			assert.Equal(t, tt.debugOn, log.Core().Enabled(zapcore.DebugLevel))
			assert.Equal(t, tt.infoOn, log.Core().Enabled(zapcore.InfoLevel))
		})
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	log := OrNop(nil)
	require.NotNil(t, log)
	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}
