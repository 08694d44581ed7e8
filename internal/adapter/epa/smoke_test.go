//go:build epa

package epa

import (
	"archive/zip"
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/cems-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests download a real archive from the EPA file server.
// Run with: go test -tags=epa ./internal/adapter/epa/ -v -count=1

const liveArchive = "https://gaftp.epa.gov/DMDnLoad/emissions/hourly/monthly/2016/2016md01.zip"

func TestSmoke_FetchArchive(t *testing.T) {
	c := NewClient(2*time.Minute, observability.NewMetricsForTesting(), slog.Default())

	data, err := c.Fetch(context.Background(), liveArchive)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.NotEmpty(t, zr.File)
	assert.Contains(t, zr.File[0].Name, ".csv")
}
