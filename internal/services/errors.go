package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// AuthenticationError is returned for a 401 response. It is never retried.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "Invalid or expired token"
	}
	return "Invalid or expired token: " + e.Message
}

// RateLimitError is returned when a 429 response persists after every retry.
type RateLimitError struct {
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. Retry after %d seconds", e.RetryAfter)
}

// ServerError is returned when a 5xx response or a timeout persists after every retry.
//
// StatusCode is zero for timeouts, in which case Err holds the transport error.
type ServerError struct {
	StatusCode int
	Err        error
}

func (e *ServerError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("Server error: %v", e.Err)
	}
	return fmt.Sprintf("Server error: %d", e.StatusCode)
}

func (e *ServerError) Unwrap() error { return e.Err }

// UnexpectedStatusError is returned for any status without a dedicated handling rule.
type UnexpectedStatusError struct {
	StatusCode int
	Message    string
}

func (e *UnexpectedStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("Unexpected response: %d", e.StatusCode)
	}
	return fmt.Sprintf("Unexpected response: %d (%s)", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var statusErr *UnexpectedStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// IsFatal reports whether err must abort a whole export (authentication or rate limiting).
func IsFatal(err error) bool {
	var authErr *AuthenticationError
	var rateErr *RateLimitError
	return errors.As(err, &authErr) || errors.As(err, &rateErr)
}

// errorMessage extracts error.message from a Graph error envelope.
func errorMessage(body []byte) string {
	return gjson.GetBytes(body, "error.message").String()
}
