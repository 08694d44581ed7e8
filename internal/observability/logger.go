// Package observability builds the service logger and Prometheus metrics.
package observability

import (
	"log/slog"

	"github.com/couchcryptid/cems-etl/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NewLogger creates the structured logger for the configured format and
// level and installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}
