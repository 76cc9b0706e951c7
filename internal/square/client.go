// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

// Package square is an HTTP client for the subset of the Square v2 REST API
// that the sync connectors consume.
//
// Client features:
//   - Bearer token authentication and pinned Square-Version header
//   - Outbound rate limiting (golang.org/x/time/rate)
//   - Automatic HTTP 429 handling with exponential backoff honoring Retry-After
//   - Cursor pagination helpers on all search/list endpoints
//   - Typed error envelope decoding with NOT_FOUND detection
//   - Context support for cancellation and timeouts
//
// Documents are returned as generic maps: Square objects are persisted
// verbatim and the connectors only touch a handful of fields, so exhaustive
// struct mappings would be dead weight.
//
// Thread safety: safe for concurrent use.
package square

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/lakeannebrewhouse/squaredown/internal/config"
	"github.com/lakeannebrewhouse/squaredown/internal/metrics"
)

// maxErrorBodySize limits the response body read for error reporting.
const maxErrorBodySize = 64 * 1024 // 64KB

// Client handles communication with the Square v2 HTTP API.
type Client struct {
	baseURL        string
	accessToken    string
	apiVersion     string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int           // maximum retries for rate limiting
	retryBaseDelay time.Duration // base delay for exponential backoff
}

// NewClient creates a Square API client from the provided configuration.
func NewClient(cfg *config.SquareConfig) *Client {
	return &Client{
		baseURL:     cfg.URL(),
		accessToken: cfg.AccessToken,
		apiVersion:  cfg.APIVersion,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		maxRetries:     5,
		retryBaseDelay: time.Second,
	}
}

// readBodyForError reads the response body for error reporting (max 64KB).
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// doRequestWithRateLimit performs an HTTP request with outbound throttling and
// automatic HTTP 429 handling. Retries use exponential backoff (1s, 2s, 4s,
// 8s, 16s) unless the response carries a Retry-After header. The context is
// used for cancellation during backoff waits.
func (c *Client) doRequestWithRateLimit(ctx context.Context, method, reqURL string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var reader io.Reader = http.NoBody
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Square-Version", c.apiVersion)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Rate limited (HTTP 429): close body and retry with backoff
		_ = resp.Body.Close()
		metrics.SquareAPIRateLimited.Inc()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// makeRequest handles common Square API request boilerplate: it marshals the
// request body, performs the call, records metrics, decodes the error
// envelope on non-2xx statuses and unmarshals the response into result.
//
// endpoint is a short label for logging and metrics ("search_orders"), path
// is the URL path including query string ("/v2/orders/search").
func (c *Client) makeRequest(ctx context.Context, method, endpoint, path string, reqBody, result interface{}) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
	}

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, method, c.baseURL+path, payload)
	metrics.RecordSquareAPICall(endpoint, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to make %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordSquareAPIError(endpoint, strconv.Itoa(resp.StatusCode))
		return decodeErrorEnvelope(resp, endpoint)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// decodeErrorEnvelope turns a non-2xx response into an *APIError, keeping the
// raw body in the error text when the envelope cannot be parsed.
func decodeErrorEnvelope(resp *http.Response, endpoint string) error {
	body := readBodyForError(resp.Body)

	var envelope struct {
		Errors []Error `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Errors) == 0 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Errors: []Error{{
				Category: "API_ERROR",
				Code:     "UNPARSEABLE_RESPONSE",
				Detail:   string(body),
			}},
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Endpoint:   endpoint,
		Errors:     envelope.Errors,
	}
}

// Ping verifies connectivity and credentials by listing locations.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListLocations(ctx)
	return err
}
