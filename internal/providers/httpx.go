package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/vigil-trading/vigil/internal/retry"
)

// httpClient wraps one upstream endpoint with a rate limiter and a circuit
// breaker. All provider adapters share it so throttling and trip behavior
// stay uniform.
type httpClient struct {
	name    string
	baseURL string
	apiKey  string

	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker

	callCount  atomic.Int64
	errorCount atomic.Int64
}

// newHTTPClient builds a provider HTTP client. rps bounds request rate;
// the breaker trips on 3 consecutive failures or a >50% failure rate over
// a 60s window once 10 requests have been seen.
func newHTTPClient(name, baseURL, apiKey string, rps float64, timeout time.Duration) *httpClient {
	st := gobreaker.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 10 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.5
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("provider", name).
			Str("from", from.String()).Str("to", to.String()).
			Msg("provider breaker state change")
	}

	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &httpClient{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

// getJSON fetches path?query and decodes the body into out. 429 and 5xx map
// onto the retry package's transient sentinels so call-site backoff policies
// can classify them; 4xx other than 429 is permanent.
func (c *httpClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("%s: parse URL: %w", c.name, err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	_, err = c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("%s: create request: %w", c.name, err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			c.errorCount.Add(1)
			return nil, fmt.Errorf("%s: %s: %w", c.name, path, retry.ErrUpstream)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			c.errorCount.Add(1)
			return nil, fmt.Errorf("%s: read body: %w", c.name, retry.ErrUpstream)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			c.errorCount.Add(1)
			return nil, fmt.Errorf("%s: %s: %w", c.name, path, retry.ErrRateLimited)
		case resp.StatusCode >= 500:
			c.errorCount.Add(1)
			return nil, fmt.Errorf("%s: %s: HTTP %d: %w", c.name, path, resp.StatusCode, retry.ErrUpstream)
		case resp.StatusCode != http.StatusOK:
			c.errorCount.Add(1)
			return nil, fmt.Errorf("%s: %s: HTTP %d: %s", c.name, path, resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("%s: parse %s: %w", c.name, path, err)
		}
		return nil, nil
	})
	if err != nil {
		// An open breaker behaves like a transient upstream outage.
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return fmt.Errorf("%s: breaker open: %w", c.name, retry.ErrUpstream)
		}
		return err
	}

	c.callCount.Add(1)
	return nil
}

// Stats returns cumulative call/error counts for observability.
func (c *httpClient) Stats() (calls, errors int64) {
	return c.callCount.Load(), c.errorCount.Load()
}
