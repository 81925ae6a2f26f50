// Package fred fetches monthly observations from the FRED API.
package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.stlouisfed.org/fred"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultRateDelay   = 1 * time.Second
)

// Errors returned by the client.
var (
	ErrNoObservations = errors.New("no observations")
	ErrInvalidValue   = errors.New("invalid observation value")
	ErrAPI            = errors.New("fred api error")
)

// missingValue is FRED's placeholder for an unavailable observation.
const missingValue = "."

// Client fetches series observations over HTTP.
// Requests are spaced by the configured rate limit, which is shared by all
// callers of the same Client.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	breaker     *gobreaker.CircuitBreaker
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithRateDelay sets the minimum spacing between requests. Zero disables
// rate limiting.
func WithRateDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.limiter = newLimiter(d)
	}
}

// WithCircuitBreaker stops calling FRED for a cool-down period after
// consecutiveFailures transient failures in a row. Series-level errors
// such as an unknown series id do not count as failures.
func WithCircuitBreaker(name string, consecutiveFailures uint32, coolDown time.Duration) ClientOption {
	return func(c *Client) {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: coolDown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= consecutiveFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil ||
					errors.Is(err, ErrAPI) ||
					errors.Is(err, ErrNoObservations) ||
					errors.Is(err, ErrInvalidValue)
			},
		})
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a FRED client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		limiter:     newLimiter(DefaultRateDelay),
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// observationsResponse is the JSON body of series/observations.
type observationsResponse struct {
	Observations []observation `json:"observations"`
	ErrorCode    int           `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// Observations returns the monthly observations of seriesID ordered by
// date, starting at start when it is non-zero. Placeholder values are
// kept as missing observations.
// It returns gobreaker.ErrOpenState while the circuit breaker is open.
func (c *Client) Observations(ctx context.Context, seriesID string, start time.Time) ([]domain.Observation, error) {
	var (
		obs []domain.Observation
		err error
	)
	if c.breaker == nil {
		obs, err = c.observations(ctx, seriesID, start)
	} else {
		var res interface{}
		res, err = c.breaker.Execute(func() (interface{}, error) {
			return c.observations(ctx, seriesID, start)
		})
		if err == nil {
			obs = res.([]domain.Observation)
		}
	}
	observability.RecordSeriesFetched(err)
	return obs, err
}

func (c *Client) observations(ctx context.Context, seriesID string, start time.Time) ([]domain.Observation, error) {
	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	q.Set("frequency", "m")
	if !start.IsZero() {
		q.Set("observation_start", start.Format(time.DateOnly))
	}

	var resp observationsResponse
	if err := c.get(ctx, "/series/observations", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", seriesID, err)
	}
	if len(resp.Observations) == 0 {
		return nil, fmt.Errorf("%w for series %s", ErrNoObservations, seriesID)
	}

	result := make([]domain.Observation, 0, len(resp.Observations))
	valid := 0
	for _, o := range resp.Observations {
		d, err := time.Parse(time.DateOnly, o.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: series %s: bad date %q", ErrInvalidValue, seriesID, o.Date)
		}
		value := domain.Missing
		if o.Value != missingValue && o.Value != "" {
			v, err := strconv.ParseFloat(o.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: series %s date %s: %q", ErrInvalidValue, seriesID, o.Date, o.Value)
			}
			value = domain.Float(v)
		}
		if value.Valid {
			valid++
		}
		result = append(result, domain.Observation{
			SeriesID:       seriesID,
			Date:           d,
			Value:          value,
			Deseasonalized: domain.Missing,
		})
	}
	if valid == 0 {
		return nil, fmt.Errorf("%w: series %s has only placeholder values", ErrNoObservations, seriesID)
	}
	return result, nil
}

// get performs a GET with rate limiting, retries and exponential backoff.
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	endpoint := c.baseURL + path + "?" + query.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			observability.RecordFREDRetry()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		started := time.Now()
		retry, err := c.do(ctx, endpoint, result)
		if err == nil {
			observability.RecordFREDRequest("ok", time.Since(started))
			return nil
		}
		observability.RecordFREDRequest("error", time.Since(started))
		if !retry {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// do performs one attempt. retry reports whether a failure is transient.
func (c *Client) do(ctx context.Context, endpoint string, result interface{}) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("http request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return true, fmt.Errorf("read response: %w", err)
	}

	// Handle rate limiting and server errors
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return true, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var apiErr observationsResponse
	if resp.StatusCode != http.StatusOK {
		// Client errors carry an error_message and are not retried.
		if json.Unmarshal(body, &apiErr) == nil && apiErr.ErrorMessage != "" {
			return false, fmt.Errorf("%w %d: %s", ErrAPI, resp.StatusCode, apiErr.ErrorMessage)
		}
		return false, fmt.Errorf("%w: status %d", ErrAPI, resp.StatusCode)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return true, fmt.Errorf("unmarshal response: %w", err)
	}
	if r, ok := result.(*observationsResponse); ok && r.ErrorCode != 0 {
		return false, fmt.Errorf("%w %d: %s", ErrAPI, r.ErrorCode, r.ErrorMessage)
	}
	return false, nil
}
