package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/cems-etl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name      string
		level     string
		format    string
		enabled   slog.Level
		suppressed slog.Level
	}{
		{"json warn", "warn", "json", slog.LevelWarn, slog.LevelInfo},
		{"text debug", "DEBUG", "text", slog.LevelDebug, slog.LevelDebug - 4},
		{"unknown level falls back to info", "bogus", "json", slog.LevelInfo, slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(&config.Config{LogLevel: tt.level, LogFormat: tt.format})
			require.NotNil(t, logger)
			assert.Same(t, logger, slog.Default())
			assert.True(t, logger.Enabled(context.Background(), tt.enabled))
			assert.False(t, logger.Enabled(context.Background(), tt.suppressed))
		})
	}
}

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.SourcesLoaded.WithLabelValues("success").Inc()
	m.FetchCache.WithLabelValues("hit").Inc()
	m.StoreRows.Set(3)
	assert.NotNil(t, m.LoadDuration)
}
