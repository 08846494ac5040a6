package client

import (
	"fmt"
	"time"
)

// APIError represents a non-success response from the game server.
// It includes the endpoint, HTTP status code, and response body.
type APIError struct {
	// Endpoint is the logical endpoint that returned the error
	Endpoint string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is the error message or response body
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("game API %s error (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("game API %s error: %s", e.Endpoint, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// RateLimitError represents a rate limit response (HTTP 429) that
// survived all retries. It includes the retry-after duration if the
// server provided one.
type RateLimitError struct {
	// Endpoint is the logical endpoint that rate limited the request
	Endpoint string

	// RetryAfter is the duration the server asked us to wait (if provided)
	RetryAfter time.Duration

	// Message is the response body
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("game API %s rate limit exceeded (retry after %s): %s",
			e.Endpoint, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("game API %s rate limit exceeded: %s", e.Endpoint, e.Message)
}

// TimeoutError represents a request abandoned because its context
// expired or was canceled.
type TimeoutError struct {
	// Endpoint is the logical endpoint where the timeout occurred
	Endpoint string

	// Timeout is the configured per-request timeout
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("game API %s request timeout after %s", e.Endpoint, e.Timeout)
}

// ParseError represents a response that could not be decoded or that
// was missing required fields.
type ParseError struct {
	// Endpoint is the logical endpoint that returned the malformed response
	Endpoint string

	// RawResponse is the response body that failed to parse
	RawResponse string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("game API %s response parse error: %v", e.Endpoint, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
