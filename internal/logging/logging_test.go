package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureVariants(t *testing.T) {
	cases := []Config{
		{Level: "INFO"},
		{Level: "DEBUG"},
		{Level: "INFO", Structured: true, StructuredFormat: "json"},
		{Level: "INFO", Structured: true, StructuredFormat: "keyvalue"},
		{Level: "WARN", IncludePID: true, ExtraFields: map[string]string{"service": "guardian"}},
	}
	for _, cfg := range cases {
		logger := Configure(cfg)
		require.NotNil(t, logger)
		assert.Same(t, logger, slog.Default())
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("INFO"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" warning "))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR"))
	// Unknown strings fall back to INFO rather than failing startup.
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestConfigureLevelGate(t *testing.T) {
	logger := Configure(Config{Level: "ERROR"})
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelError))
}
