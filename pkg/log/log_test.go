package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "DEBUG", want: DebugLevel},
		{in: "info", want: InfoLevel},
		{in: "", want: InfoLevel},
		{in: "Warning", want: WarnLevel},
		{in: "warn", want: WarnLevel},
		{in: "CRITICAL", want: ErrorLevel},
		{in: "trace", want: InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRollingPeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "none", want: 0},
		{in: "", want: 0},
		{in: "hour", want: time.Hour},
		{in: "DAY", want: 24 * time.Hour},
		{in: "week", want: 7 * 24 * time.Hour},
		{in: "month", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := RollingPeriod(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf}))
	defer Close()

	logger := WithComponent("test")
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"component":"test"`)
}

func TestInitFileSinkLevels(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "meshrelay.log")

	err := Init(Config{
		Level:      ErrorLevel,
		JSONOutput: true,
		Output:     &console,
		File: FileConfig{
			Path:            path,
			Level:           DebugLevel,
			MaxBackups:      7,
			RollingInterval: RollDay,
		},
	})
	require.NoError(t, err)

	Logger.Debug().Msg("debug line")
	Logger.Error().Msg("error line")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug line")
	assert.Contains(t, string(data), "error line")

	assert.NotContains(t, console.String(), "debug line")
	assert.Contains(t, console.String(), "error line")
}

func TestInitRejectsBadInterval(t *testing.T) {
	err := Init(Config{
		Output: &bytes.Buffer{},
		File:   FileConfig{Path: filepath.Join(t.TempDir(), "x.log"), RollingInterval: "fortnight"},
	})
	assert.Error(t, err)
}
