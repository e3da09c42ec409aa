package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"ukodus-galaxy/domain/galaxy"
	pkgerrors "ukodus-galaxy/pkg/errors"
	"ukodus-galaxy/pkg/observability"
)

// Client fetches the read-only galaxy resources from the upstream puzzle
// API. Both resources are optional: after the retry budget is exhausted
// the caller degrades to an empty state rather than failing.
type Client struct {
	baseURL  string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewClient creates an upstream client. backoff is multiplied by the
// attempt number, giving the linear 500ms/1s/1.5s ramp.
func NewClient(baseURL string, attempts int, backoff time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream-galaxy",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		breaker:  breaker,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger,
		metrics:  metrics,
	}
}

// FetchOverview retrieves the full galaxy dataset. Returns nil after the
// retry budget is spent; the caller renders a "no data yet" state.
func (c *Client) FetchOverview(ctx context.Context) (*galaxy.Overview, error) {
	var overview galaxy.Overview
	if err := c.getJSON(ctx, "/galaxy/overview", &overview); err != nil {
		return nil, err
	}
	return &overview, nil
}

// FetchStats retrieves the aggregate counters resource.
func (c *Client) FetchStats(ctx context.Context) (*galaxy.Stats, error) {
	var stats galaxy.Stats
	if err := c.getJSON(ctx, "/galaxy/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// getJSON performs a GET with up to c.attempts tries, backing off
// linearly between them. Every try goes through the circuit breaker so a
// hard-down upstream stops consuming the retry budget at all.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	url := c.baseURL + path

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			if c.metrics != nil {
				c.metrics.FetchRetries.Inc()
			}
			select {
			case <-time.After(c.backoff * time.Duration(attempt-1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.doOnce(ctx, url, out)
		})
		if err == nil {
			return nil
		}
		lastErr = err

		c.logger.Warn("Upstream fetch failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return pkgerrors.NewUnavailableError("upstream circuit open").WithCause(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return pkgerrors.NewNetworkError(fmt.Sprintf("upstream fetch exhausted %d attempts", c.attempts)).WithCause(lastErr)
}

func (c *Client) doOnce(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pkgerrors.NewExternalError(fmt.Sprintf("upstream returned %d", resp.StatusCode))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
