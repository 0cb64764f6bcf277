package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://graph.microsoft.com/v1.0"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	defaultRetryAfter = 60 // seconds
	bearerPrefix      = "Bearer "
	retryAfterHeader  = "Retry-After"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// GraphOpts configures a [GraphClient]. Zero values fall back to package defaults,
// except MaxRetries where zero disables retries.
type GraphOpts struct {
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64 // <= 0 disables client-side pacing
	Logger            *log.Logger
	Transport         http.RoundTripper // base transport under the bearer token
	Sleep             SleepFunc
}

// DefaultGraphOpts returns options matching Microsoft Graph's public endpoint.
func DefaultGraphOpts() GraphOpts {
	return GraphOpts{
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// GraphClient performs authenticated GET requests against Microsoft Graph,
// retrying rate-limited, 5xx and timed out calls.
//
// A client holds one token and is meant to serve a single export.
type GraphClient struct {
	http       *resty.Client
	limiter    *rate.Limiter
	maxRetries int
	sleep      SleepFunc
	logger     *log.Logger
	now        func() time.Time
}

// NewGraphClient creates a client that authenticates every request with token.
func NewGraphClient(token string, opts GraphOpts) *GraphClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: strings.TrimPrefix(BearerToken(token), bearerPrefix),
		TokenType:   "Bearer",
	})

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetTransport(&oauth2.Transport{Source: source, Base: opts.Transport}).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{opts.Logger})

	return &GraphClient{
		http:       client,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: opts.MaxRetries,
		sleep:      opts.Sleep,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// BearerToken returns token with the "Bearer " prefix, adding it only when missing.
func BearerToken(token string) string {
	if strings.HasPrefix(token, bearerPrefix) {
		return token
	}
	return bearerPrefix + token
}

// Get performs a GET request. path is either relative to the base URL or an absolute
// continuation link, which is used verbatim.
//
// Errors are one of [*AuthenticationError], [*RateLimitError], [*ServerError],
// [*UnexpectedStatusError], or a wrapped [shared.ErrAPIRequest] for transport failures.
func (c *GraphClient) Get(ctx context.Context, path string) (*APIResponse, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		resp, err := c.http.R().SetContext(ctx).Get(path)
		if err != nil {
			if !c.isTimeout(ctx, err) {
				return nil, fmt.Errorf("%w: GET %s: %v", shared.ErrAPIRequest, path, err)
			}
			if attempt >= c.maxRetries {
				return nil, &ServerError{Err: err}
			}
			if err := c.backoff(ctx, path, attempt, "request timed out"); err != nil {
				return nil, err
			}
			continue
		}

		code := resp.StatusCode()
		switch {
		case code >= 200 && code < 300:
			return &APIResponse{StatusCode: code, Headers: resp.Header(), Body: resp.Body()}, nil
		case code == http.StatusUnauthorized:
			return nil, &AuthenticationError{Message: errorMessage(resp.Body())}
		case code == http.StatusTooManyRequests:
			wait := parseRetryAfter(resp.Header().Get(retryAfterHeader), c.now())
			if attempt >= c.maxRetries {
				return nil, &RateLimitError{RetryAfter: wait}
			}
			c.logger.Warn("rate limit exceeded, waiting", "path", path, "seconds", wait, "retry", attempt+1)
			if err := c.sleep(ctx, time.Duration(wait)*time.Second); err != nil {
				return nil, err
			}
		case code >= 500 && code < 600:
			if attempt >= c.maxRetries {
				return nil, &ServerError{StatusCode: code}
			}
			if err := c.backoff(ctx, path, attempt, http.StatusText(code)); err != nil {
				return nil, err
			}
		default:
			return nil, &UnexpectedStatusError{StatusCode: code, Message: errorMessage(resp.Body())}
		}
	}
}

// backoff sleeps 2^attempt seconds (1s, 2s, 4s, ...).
func (c *GraphClient) backoff(ctx context.Context, path string, attempt int, reason string) error {
	wait := time.Duration(1<<attempt) * time.Second
	c.logger.Debug("retrying request", "path", path, "reason", reason, "wait", wait, "retry", attempt+1)
	return c.sleep(ctx, wait)
}

// isTimeout reports whether err is a client-side timeout rather than cancellation of ctx.
func (c *GraphClient) isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseRetryAfter returns the Retry-After delay in seconds.
//
// Missing or unparseable values yield 60. HTTP-dates in the past yield 0.
func parseRetryAfter(value string, now time.Time) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultRetryAfter
	}

	if isDigits(value) {
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return defaultRetryAfter
		}
		return seconds
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return defaultRetryAfter
	}
	return max(int(at.Sub(now).Seconds()), 0)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// restyLogger demotes resty's own messages to debug. Failures reach callers as errors.
type restyLogger struct {
	l *log.Logger
}

func (r restyLogger) Errorf(format string, v ...any) { r.l.Debugf(format, v...) }
func (r restyLogger) Warnf(format string, v ...any)  { r.l.Debugf(format, v...) }
func (r restyLogger) Debugf(format string, v ...any) { r.l.Debugf(format, v...) }
