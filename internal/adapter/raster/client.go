package raster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/observability"
)

const (
	reducePath     = "/v1/reduce"
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 10 * time.Second
)

// Client implements Source over the raster service's JSON API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	maxRetries int
	backoff    time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a raster service client. Requests that fail with 429 or
// a 5xx status are retried up to maxRetries times with exponential backoff.
func NewClient(endpoint, token string, timeout time.Duration, maxRetries int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:    strings.TrimRight(endpoint, "/"),
		maxRetries: maxRetries,
		backoff:    initialBackoff,
		metrics:    metrics,
		logger:     logger,
	}
}

// Reduce posts the query and returns per-band values.
func (c *Client) Reduce(ctx context.Context, q Query) (Result, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	backoff := c.backoff
	for attempt := 0; ; attempt++ {
		result, retryable, err := c.do(ctx, body)
		if err == nil {
			c.metrics.RasterRequests.WithLabelValues("success").Inc()
			return result, nil
		}
		c.metrics.RasterRequests.WithLabelValues("error").Inc()
		if !retryable || attempt >= c.maxRetries {
			return nil, fmt.Errorf("reduce %s: %w", q.File, err)
		}
		c.logger.Debug("raster request failed, retrying",
			"file", q.File, "attempt", attempt+1, "backoff", backoff, "error", err)
		if !sharedretry.SleepWithContext(ctx, backoff) {
			return nil, fmt.Errorf("reduce %s: %w", q.File, ctx.Err())
		}
		backoff = sharedretry.NextBackoff(backoff, maxBackoff)
	}
}

func (c *Client) do(ctx context.Context, body []byte) (Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+reducePath, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RasterDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("raster request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("raster API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return nil, false, errors.New(out.Error)
	}
	if out.Values == nil {
		return nil, false, errors.New("response has no values")
	}
	return out.Values, false, nil
}

type response struct {
	Values Result `json:"values"`
	Error  string `json:"error,omitempty"`
}
