package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keepDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestSetup_ProductionWritesJSON(t *testing.T) {
	keepDefault(t)

	var buf bytes.Buffer
	logger, err := Setup(Options{Service: "splitledger", Level: "warn", Env: "production", Output: &buf})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "expense_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "splitledger", line["service"])
	assert.Equal(t, "abc", line["expense_id"])
	assert.NotContains(t, line, "source")
	assert.Same(t, logger, slog.Default())
}

func TestSetup_DebugAddsSource(t *testing.T) {
	keepDefault(t)

	var buf bytes.Buffer
	logger, err := Setup(Options{Level: "debug", Output: &buf})
	require.NoError(t, err)
	logger.Debug("here")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Contains(t, line, "source")
	assert.NotContains(t, line, "service")
}

func TestSetup_DevelopmentIsText(t *testing.T) {
	keepDefault(t)

	var buf bytes.Buffer
	logger, err := Setup(Options{Service: "splitctl", Level: "info", Env: "development", Output: &buf})
	require.NoError(t, err)
	logger.Info("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestSetup_RejectsUnknownLevel(t *testing.T) {
	keepDefault(t)
	before := slog.Default()

	_, err := Setup(Options{Level: "verbose"})
	assert.ErrorContains(t, err, "verbose")
	assert.Same(t, before, slog.Default())
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, l, FromContext(WithLogger(context.Background(), l)))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "WARNING", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "", want: slog.LevelInfo},
		{in: "verbose", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
