package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/shared"
)

// recordSleeps returns a SleepFunc that records requested delays without blocking.
func recordSleeps(delays *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func newTestClient(url string, delays *[]time.Duration) *GraphClient {
	return NewGraphClient("test-token", GraphOpts{
		BaseURL:    url,
		Timeout:    time.Second,
		MaxRetries: DefaultMaxRetries,
		Logger:     log.New(io.Discard),
		Sleep:      recordSleeps(delays),
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"raw_token", "Bearer raw_token"},
		{"Bearer test_token_123", "Bearer test_token_123"},
		{"", "Bearer "},
	}

	for _, tt := range tests {
		if got := BearerToken(tt.token); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"missing", "", 60},
		{"numeric", "5", 5},
		{"zero", "0", 0},
		{"garbage", "soon", 60},
		{"negative numeric is not digits", "-5", 60},
		{"http date in future", now.Add(30 * time.Second).Format(http.TimeFormat), 30},
		{"http date in past", now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.value, now); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestGraphClient(t *testing.T) {
	t.Run("Sends Bearer Token And Returns Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("expected Authorization 'Bearer test-token', got %q", got)
			}
			if r.URL.Path != "/me/todo/lists" {
				t.Errorf("expected path /me/todo/lists, got %s", r.URL.Path)
			}
			if r.URL.Query().Get("$top") != "10" {
				t.Errorf("expected $top=10, got %q", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"value":[]}`))
		}))
		defer server.Close()

		var delays []time.Duration
		resp, err := newTestClient(server.URL, &delays).Get(context.Background(), "/me/todo/lists?$top=10")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}
		if string(resp.Body) != `{"value":[]}` {
			t.Errorf("unexpected body %s", resp.Body)
		}
		if len(delays) != 0 {
			t.Errorf("expected no retries, got %v", delays)
		}
	})

	t.Run("Absolute Links Are Used Verbatim", func(t *testing.T) {
		var hits atomic.Int32
		other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if r.URL.Query().Get("$skiptoken") != "abc" {
				t.Errorf("expected skiptoken to survive, got %q", r.URL.RawQuery)
			}
			w.Write([]byte(`{"value":[]}`))
		}))
		defer other.Close()

		var delays []time.Duration
		client := newTestClient("http://127.0.0.1:1", &delays)
		if _, err := client.Get(context.Background(), other.URL+"/me/todo/lists?$skiptoken=abc"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("expected next link server to be hit once, got %d", hits.Load())
		}
	})

	t.Run("401 Fails Immediately", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":"InvalidAuthenticationToken","message":"Access token has expired."}}`))
		}))
		defer server.Close()

		var delays []time.Duration
		_, err := newTestClient(server.URL, &delays).Get(context.Background(), "/me")

		var authErr *AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthenticationError, got %v", err)
		}
		if authErr.Message != "Access token has expired." {
			t.Errorf("expected graph error message, got %q", authErr.Message)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", calls.Load())
		}
		if !IsFatal(err) {
			t.Error("authentication errors should be fatal")
		}
	})

	t.Run("429 Retries With Retry-After Then Fails", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		var delays []time.Duration
		_, err := newTestClient(server.URL, &delays).Get(context.Background(), "/me")

		var rateErr *RateLimitError
		if !errors.As(err, &rateErr) {
			t.Fatalf("expected RateLimitError, got %v", err)
		}
		if rateErr.RetryAfter != 7 {
			t.Errorf("expected RetryAfter 7, got %d", rateErr.RetryAfter)
		}
		if !strings.Contains(err.Error(), "Retry after 7 seconds") {
			t.Errorf("unexpected message %q", err.Error())
		}
		if calls.Load() != DefaultMaxRetries+1 {
			t.Errorf("expected %d calls, got %d", DefaultMaxRetries+1, calls.Load())
		}
		if len(delays) != DefaultMaxRetries {
			t.Fatalf("expected %d sleeps, got %v", DefaultMaxRetries, delays)
		}
		for _, d := range delays {
			if d != 7*time.Second {
				t.Errorf("expected 7s sleep, got %v", d)
			}
		}
	})

	t.Run("429 Recovers", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		var delays []time.Duration
		if _, err := newTestClient(server.URL, &delays).Get(context.Background(), "/me"); err != nil {
			t.Fatalf("expected recovery, got %v", err)
		}
		if len(delays) != 1 || delays[0] != 60*time.Second {
			t.Errorf("expected one default 60s wait, got %v", delays)
		}
	})

	t.Run("5xx Retries With Exponential Backoff", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		var delays []time.Duration
		_, err := newTestClient(server.URL, &delays).Get(context.Background(), "/me")

		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("expected ServerError, got %v", err)
		}
		if serverErr.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", serverErr.StatusCode)
		}

		want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
		if len(delays) != len(want) {
			t.Fatalf("expected delays %v, got %v", want, delays)
		}
		for i := range want {
			if delays[i] != want[i] {
				t.Errorf("delay %d: expected %v, got %v", i, want[i], delays[i])
			}
		}
		if IsFatal(err) {
			t.Error("server errors should not be fatal")
		}
	})

	t.Run("5xx Then Success", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		var delays []time.Duration
		if _, err := newTestClient(server.URL, &delays).Get(context.Background(), "/me"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})

	t.Run("Other Status Fails Immediately", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"ResourceNotFound","message":"task gone"}}`))
		}))
		defer server.Close()

		var delays []time.Duration
		_, err := newTestClient(server.URL, &delays).Get(context.Background(), "/me")

		var statusErr *UnexpectedStatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected UnexpectedStatusError, got %v", err)
		}
		if statusErr.Message != "task gone" {
			t.Errorf("expected message 'task gone', got %q", statusErr.Message)
		}
		if !IsNotFound(err) {
			t.Error("expected IsNotFound to be true")
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", calls.Load())
		}
	})

	t.Run("Timeouts Take The Server Error Path", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		var delays []time.Duration
		client := NewGraphClient("t", GraphOpts{
			BaseURL:    server.URL,
			Timeout:    20 * time.Millisecond,
			MaxRetries: 1,
			Logger:     log.New(io.Discard),
			Sleep:      recordSleeps(&delays),
		})

		_, err := client.Get(context.Background(), "/me")

		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("expected ServerError, got %v", err)
		}
		if serverErr.StatusCode != 0 {
			t.Errorf("expected no status code for timeout, got %d", serverErr.StatusCode)
		}
		if len(delays) != 1 {
			t.Errorf("expected one backoff, got %v", delays)
		}
	})

	t.Run("Transport Failure Is Not Retried", func(t *testing.T) {
		var delays []time.Duration
		_, err := newTestClient("http://127.0.0.1:1", &delays).Get(context.Background(), "/me")

		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if len(delays) != 0 {
			t.Errorf("expected no retries, got %v", delays)
		}
	})

	t.Run("Transport Failure Is Logged At Debug Only", func(t *testing.T) {
		var buf bytes.Buffer
		client := NewGraphClient("t", GraphOpts{
			BaseURL:    "http://127.0.0.1:1",
			Timeout:    time.Second,
			MaxRetries: 0,
			Logger:     log.New(&buf),
		})

		if _, err := client.Get(context.Background(), "/me"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("expected no log output at info level, got %q", buf.String())
		}
	})

	t.Run("Sleep Error Aborts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewGraphClient("t", GraphOpts{
			BaseURL:    server.URL,
			MaxRetries: 3,
			Logger:     log.New(io.Discard),
			Sleep: func(ctx context.Context, d time.Duration) error {
				return context.Canceled
			},
		})

		if _, err := client.Get(context.Background(), "/me"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("expected nil for zero duration, got %v", err)
	}
}

func TestRestyLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	l := restyLogger{logger}

	l.Errorf("boom %d", 1)
	l.Warnf("careful %d", 2)
	if buf.Len() != 0 {
		t.Errorf("expected nothing at info level, got %q", buf.String())
	}

	logger.SetLevel(log.DebugLevel)
	l.Errorf("boom %d", 3)
	if !strings.Contains(buf.String(), "boom 3") {
		t.Errorf("expected debug line, got %q", buf.String())
	}
}
