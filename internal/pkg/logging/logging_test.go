package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		Name     string
		Level    string
		Expected zapcore.Level
		Err      bool
	}{
		{"debug", "debug", zapcore.DebugLevel, false},
		{"upper case with spaces", " WARN ", zapcore.WarnLevel, false},
		{"blank means info", "  ", zapcore.InfoLevel, false},
		{"dpanic", "dpanic", zapcore.DPanicLevel, false},
		{"unknown", "verbose", 0, true},
	}

	for _, aTestCase := range testCases {
		t.Run(aTestCase.Name, func(t *testing.T) {
			level, err := ParseLevel(aTestCase.Level)
			if aTestCase.Err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, aTestCase.Expected, level)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	logConf := DefaultConfig()
	assert.Equal(t, []string{"stderr"}, logConf.OutputPaths)
	assert.Equal(t, []string{"stderr"}, logConf.ErrorOutputPaths)
	assert.Nil(t, logConf.Sampling)
	assert.Equal(t, "severity", logConf.EncoderConfig.LevelKey)
}

func TestNew(t *testing.T) {
	t.Parallel()

	logger, err := New("")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New("error")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = New("bogus")
	require.Error(t, err)
}
