package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/ratelimit"
)

const (
	maxBodyBytes      = 6 << 20
	defaultMaxRetries = 2
	defaultTimeout    = 15 * time.Second
)

var errTransient = errors.New("transient provider failure")

var providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "provider_requests_total",
	Help: "Upstream provider requests by outcome",
}, []string{"provider", "outcome"})

// ClientConfig configures the shared upstream HTTP client.
type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the base delay between retries, multiplied by the attempt number.
	Backoff time.Duration
	Logger  *zap.Logger
}

// Quota consumes one unit of an upstream quota per outgoing request.
type Quota struct {
	Limiter logic.Limiter
	API     string
	Limit   int
	Window  ratelimit.Window
}

func (q *Quota) take(ctx context.Context) error {
	if q == nil || q.Limiter == nil {
		return nil
	}
	if !q.Limiter.TryConsume(ctx, q.API, q.Limit, q.Window) {
		return fmt.Errorf("%s %s quota of %d exhausted: %w", q.API, q.Window, q.Limit, logic.ErrRateLimited)
	}
	return nil
}

// client wraps the request/retry/decode cycle every provider shares.
type client struct {
	name       string
	http       *http.Client
	baseURL    string
	header     http.Header
	maxRetries int
	backoff    time.Duration
	quota      *Quota
	logger     *zap.SugaredLogger
	flight     singleflight.Group
}

func newClient(name string, cfg ClientConfig, header http.Header, quota *Quota) *client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Accept", "application/json")

	return &client{
		name:       name,
		http:       httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		header:     header,
		maxRetries: maxRetries,
		backoff:    backoff,
		quota:      quota,
		logger:     logger.Sugar().With("provider", name),
	}
}

// getJSON issues a GET and decodes the body into target. Identical in-flight
// requests share one upstream call and one quota unit.
func (c *client) getJSON(ctx context.Context, path string, query url.Values, target any) error {
	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		if err := c.quota.take(ctx); err != nil {
			return nil, err
		}
		return c.execute(ctx, http.MethodGet, fullURL, nil)
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := jsoniter.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", c.name, err)
	}
	return nil
}

// postJSON encodes body, POSTs it and decodes the reply into target.
func (c *client) postJSON(ctx context.Context, path string, body, target any) error {
	payload, err := jsoniter.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", c.name, err)
	}
	if err := c.quota.take(ctx); err != nil {
		return err
	}
	raw, err := c.execute(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if err := jsoniter.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", c.name, err)
	}
	return nil
}

func (c *client) execute(ctx context.Context, method, fullURL string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		for k, v := range c.header {
			req.Header[k] = v
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				providerRequests.WithLabelValues(c.name, "ok").Inc()
				return raw, nil
			case resp.StatusCode == http.StatusTooManyRequests:
				lastErr = fmt.Errorf("%s status=%d: %w", c.name, resp.StatusCode, logic.ErrRateLimited)
			case resp.StatusCode >= 500:
				lastErr = fmt.Errorf("%w: %s status=%d body=%s", errTransient, c.name, resp.StatusCode, abbreviate(raw))
			default:
				providerRequests.WithLabelValues(c.name, strconv.Itoa(resp.StatusCode)).Inc()
				return nil, fmt.Errorf("%s status=%d body=%s", c.name, resp.StatusCode, abbreviate(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	providerRequests.WithLabelValues(c.name, "failed").Inc()
	c.logger.Warnw("Provider request failed", "url", redactURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func abbreviate(raw []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// redactURL strips credentials passed as query parameters.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for _, k := range []string{"appid", "api_token", "key"} {
		if q.Has(k) {
			q.Set(k, "***")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func seasonOf(t time.Time) int {
	t = t.UTC()
	if t.Month() >= time.July {
		return t.Year()
	}
	return t.Year() - 1
}
