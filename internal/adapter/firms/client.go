package firms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/firms-fire-etl/internal/domain"
	"github.com/couchcryptid/firms-fire-etl/internal/observability"
)

const (
	// defaultMaxBody bounds a single CSV response.
	defaultMaxBody = 64 << 20
	// maxErrorRead bounds how much of an error response is read before truncation.
	maxErrorRead = 4 << 10
)

// ErrBodyTooLarge is returned when a CSV response exceeds the size limit.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// Client fetches area CSV documents from the FIRMS API.
// It implements pipeline.Fetcher.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxBody    int64
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a FIRMS client. Every request is bounded by timeout; a
// timed-out request fails the same way as any other transport error.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		maxBody: defaultMaxBody,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchCSV downloads the CSV body for one source query. Non-2xx responses and
// network failures are returned as *domain.TransportError.
func (c *Client) FetchCSV(ctx context.Context, q domain.SourceQuery) (string, error) {
	start := time.Now()
	body, err := c.doRequest(ctx, q)
	c.metrics.FetchDuration.WithLabelValues(q.Source()).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(q.Source(), "error").Inc()
		return "", err
	}
	c.metrics.FetchRequests.WithLabelValues(q.Source(), "success").Inc()
	c.logger.Debug("firms fetch complete",
		"source", q.Source(),
		"days", q.Days(),
		"bytes", len(body),
		"duration", time.Since(start),
	)
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, q domain.SourceQuery) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.URL(c.baseURL), nil)
	if err != nil {
		return "", &domain.TransportError{Source: q.Source(), Err: fmt.Errorf("create request: %w", stripURL(err))}
	}
	req.Header.Set("Accept", "text/csv")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.TransportError{Source: q.Source(), Err: stripURL(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorRead))
		return "", domain.NewStatusError(q.Source(), resp.StatusCode, string(body))
	}

	// Read one byte past the limit so an oversized body fails instead of
	// being cut mid-row.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return "", &domain.TransportError{Source: q.Source(), Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > c.maxBody {
		return "", &domain.TransportError{Source: q.Source(), Err: fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, c.maxBody)}
	}
	return string(data), nil
}

// stripURL drops the request URL from err. The URL carries the map key, which
// must stay out of status messages and logs.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
