// Package epa downloads hourly emissions archives from the EPA file server.
package epa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/cems-etl/internal/domain"
	"github.com/couchcryptid/cems-etl/internal/observability"
)

// Client implements pipeline.Fetcher over HTTP.
type Client struct {
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an archive client with a per-request timeout.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch downloads the archive at url. A 404 is reported as
// domain.ErrSourceNotFound.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.metrics.FetchRequests.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, url)
	case resp.StatusCode != http.StatusOK:
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("archive server error: status %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	c.logger.Debug("archive fetched", "url", url, "bytes", len(data))
	return data, nil
}
