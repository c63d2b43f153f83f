// Package aurora fetches member messages from the upstream messages API.
package aurora

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"aurora-qa/internal/domain"
	"aurora-qa/internal/logging"
)

const (
	DefaultMessagesURL = "https://november7-730026606190.europe-west1.run.app/messages"

	defaultAttemptTimeout = 10 * time.Second
	defaultMaxAttempts    = 3
	defaultRPS            = 5
	maxBodyBytes          = 32 << 20
	maxErrorBodyBytes     = 4096
)

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("aurora: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Retryable reports whether the same request may succeed later.
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client is a read-only client for the messages endpoint.
type Client struct {
	url            string
	token          string
	httpClient     *http.Client
	attemptTimeout time.Duration
	maxAttempts    uint
	limiter        *rate.Limiter
	newBackOff     func() backoff.BackOff
	logger         *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken sends token as a bearer credential. Empty means no
// Authorization header.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithAttemptTimeout bounds each attempt, including reading the body.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// WithMaxAttempts sets the total number of attempts per fetch.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = uint(n)
		}
	}
}

// WithRateLimit paces requests to rps per second. Zero disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBackOff replaces the exponential backoff between attempts. newBackOff
// is called once per fetch.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) {
		if newBackOff != nil {
			c.newBackOff = newBackOff
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(messagesURL string, opts ...Option) (*Client, error) {
	messagesURL = strings.TrimSpace(messagesURL)
	if messagesURL == "" {
		return nil, errors.New("aurora: messages url must not be empty")
	}
	c := &Client{
		url:            messagesURL,
		httpClient:     &http.Client{},
		attemptTimeout: defaultAttemptTimeout,
		maxAttempts:    defaultMaxAttempts,
		limiter:        rate.NewLimiter(rate.Limit(defaultRPS), defaultRPS),
		newBackOff:     defaultBackOff,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{}
}

// FetchRaw returns the provider page with items kept as raw JSON. Transport
// errors, 429 and 5xx responses are retried with backoff; other failures
// are returned immediately.
func (c *Client) FetchRaw(ctx context.Context) (domain.RawPage, error) {
	logger := logging.FromContext(ctx, c.logger)
	attempt := 0

	op := func() (domain.RawPage, error) {
		attempt++
		raw, err := c.fetchOnce(ctx)
		if err != nil {
			var statusErr *HTTPStatusError
			if errors.As(err, &statusErr) && !statusErr.Retryable() {
				return domain.RawPage{}, backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return domain.RawPage{}, backoff.Permanent(err)
			}
			return domain.RawPage{}, err
		}
		page, err := decodePage(raw)
		if err != nil {
			return domain.RawPage{}, backoff.Permanent(err)
		}
		return page, nil
	}

	page, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn("messages fetch failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return domain.RawPage{}, fmt.Errorf("aurora: fetch messages: %w", err)
	}
	return page, nil
}

func (c *Client) fetchOnce(ctx context.Context) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.doJSONRequest(req)
}

func (c *Client) doJSONRequest(req *http.Request) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        c.url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(buf) > maxBodyBytes {
		return nil, backoff.Permanent(fmt.Errorf("response body exceeds %d bytes", maxBodyBytes))
	}
	return buf, nil
}

// decodePage accepts the documented {"total", "items"} envelope and a bare
// array of items.
func decodePage(raw []byte) (domain.RawPage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return domain.RawPage{}, fmt.Errorf("decode response: %w", err)
		}
		return domain.RawPage{Total: len(items), Items: items}, nil
	}
	var page domain.RawPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return domain.RawPage{}, fmt.Errorf("decode response: %w", err)
	}
	if page.Items == nil {
		page.Items = []json.RawMessage{}
	}
	return page, nil
}
