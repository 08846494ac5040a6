package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"nocturne-labs/doorman/pkg/config"
	"nocturne-labs/doorman/pkg/game"
	"nocturne-labs/doorman/pkg/telemetry/logging"
	"nocturne-labs/doorman/pkg/telemetry/metrics"
)

// Client talks to the Berghain game API. It handles retries with
// exponential backoff, rate limit waits, and response decoding.
//
// The player ID travels in the query string of every request and is a
// credential; the client keeps it out of logs and error messages.
type Client struct {
	// baseURL is the API root, without a trailing slash
	baseURL string

	// playerID authenticates the player
	playerID string

	// client is the HTTP client with connection pooling
	client *http.Client

	maxRetries      int
	retryBackoff    time.Duration
	retryBackoffMax time.Duration

	logger  *slog.Logger
	metrics *metrics.Collector
}

// New creates a game API client from server configuration. The metrics
// collector may be nil.
func New(cfg *config.ServerConfig, collector *metrics.Collector, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		baseURL:         cfg.BaseURL,
		playerID:        cfg.PlayerID,
		client:          &http.Client{Transport: transport, Timeout: cfg.Timeout},
		maxRetries:      cfg.MaxRetries,
		retryBackoff:    cfg.RetryBackoff,
		retryBackoffMax: cfg.RetryBackoffMax,
		logger:          logger.With("component", "client"),
		metrics:         collector,
	}
}

// NewGame starts a new game for the given scenario and returns the game
// handle, constraints, and attribute statistics.
func (c *Client) NewGame(ctx context.Context, scenario int) (*NewGameResponse, error) {
	query := url.Values{}
	query.Set("scenario", strconv.Itoa(scenario))
	query.Set("playerId", c.playerID)

	body, err := c.get(ctx, EndpointNewGame, c.baseURL+"/new-game?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var resp NewGameResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{
			Endpoint:    EndpointNewGame,
			RawResponse: string(body),
			Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}
	if resp.GameID == "" {
		return nil, &ParseError{
			Endpoint:    EndpointNewGame,
			RawResponse: string(body),
			Cause:       errors.New("missing gameId"),
		}
	}

	c.logger.Info("Game created",
		"game_id", resp.GameID,
		"scenario", scenario,
		"constraints", len(resp.Constraints),
		"player_id", logging.RedactPlayerID(c.playerID),
	)
	return &resp, nil
}

// DecideAndNext submits the decision for person personIndex and returns
// the server's view of the game plus the next arrival. For the very
// first call of a game, accept must be nil: the server then hands out
// person 0 without recording a decision.
func (c *Client) DecideAndNext(ctx context.Context, gameID string, personIndex int, accept *bool) (*DecideResponse, error) {
	query := url.Values{}
	query.Set("gameId", gameID)
	query.Set("personIndex", strconv.Itoa(personIndex))
	if accept != nil {
		query.Set("accept", strconv.FormatBool(*accept))
	}

	body, err := c.get(ctx, EndpointDecideAndNext, c.baseURL+"/decide-and-next?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var resp DecideResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{
			Endpoint:    EndpointDecideAndNext,
			RawResponse: string(body),
			Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}
	if _, err := game.ParseStatus(resp.Status); err != nil {
		return nil, &ParseError{
			Endpoint:    EndpointDecideAndNext,
			RawResponse: string(body),
			Cause:       err,
		}
	}
	return &resp, nil
}

// get performs a GET with retry logic. Transient failures (network
// errors, 5xx, 429) are retried with exponential backoff up to
// maxRetries; other client errors return immediately.
func (c *Client) get(ctx context.Context, endpoint, rawURL string) ([]byte, error) {
	var lastErr error
	start := time.Now()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoffDelay(attempt)
			if rl, ok := lastErr.(*RateLimitError); ok && rl.RetryAfter > backoff {
				backoff = rl.RetryAfter
				if backoff > c.retryBackoffMax {
					backoff = c.retryBackoffMax
				}
			}
			c.logger.Debug("Retrying request",
				"endpoint", endpoint,
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"backoff", backoff,
			)
			c.recordRetry(endpoint)

			select {
			case <-ctx.Done():
				c.observe(endpoint, "timeout", start)
				return nil, &TimeoutError{Endpoint: endpoint, Timeout: c.client.Timeout}
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// url.Error echoes the full URL, and the player ID rides
			// in the query string.
			var uerr *url.Error
			if errors.As(err, &uerr) {
				uerr.URL = endpoint
			}
			lastErr = err

			if ctx.Err() != nil {
				c.observe(endpoint, "timeout", start)
				return nil, &TimeoutError{Endpoint: endpoint, Timeout: c.client.Timeout}
			}

			c.logger.Warn("Request failed, will retry",
				"endpoint", endpoint,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &ParseError{
				Endpoint: endpoint,
				Cause:    fmt.Errorf("failed to read response: %w", readErr),
			}
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			c.observe(endpoint, "success", start)
			return body, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &RateLimitError{
				Endpoint:   endpoint,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(body),
			}
			c.logger.Warn("Rate limited, will retry",
				"endpoint", endpoint,
				"attempt", attempt+1,
			)

		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// Client error. Retrying cannot help.
			c.observe(endpoint, "error", start)
			return nil, &APIError{
				Endpoint:   endpoint,
				StatusCode: resp.StatusCode,
				Message:    string(body),
			}

		default:
			lastErr = &APIError{
				Endpoint:   endpoint,
				StatusCode: resp.StatusCode,
				Message:    string(body),
			}
			c.logger.Warn("Request returned error status, will retry",
				"endpoint", endpoint,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	c.observe(endpoint, "error", start)
	return nil, lastErr
}

// backoffDelay returns the exponential backoff for the given attempt,
// capped at retryBackoffMax.
func (c *Client) backoffDelay(attempt int) time.Duration {
	d := c.retryBackoff * time.Duration(1<<uint(attempt-1))
	if d > c.retryBackoffMax || d <= 0 {
		d = c.retryBackoffMax
	}
	return d
}

func (c *Client) observe(endpoint, status string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordAPIRequest(endpoint, status, time.Since(start))
	}
}

func (c *Client) recordRetry(endpoint string) {
	if c.metrics != nil {
		c.metrics.RecordAPIRetry(endpoint)
	}
}

// parseRetryAfter parses a Retry-After header value, which may be a
// delay in seconds or an HTTP date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
