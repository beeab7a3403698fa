// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the PubMed and model
// clients.
package httputil

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// throttled responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// maxRetryAfter caps a server-supplied Retry-After so a misbehaving server
// cannot stall a review.
const maxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 3

// Retryable reports whether a status code signals throttling or a
// temporary upstream outage.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway:
		return true
	default:
		return false
	}
}

// DoWithRetry executes an HTTP request and retries throttled responses
// (429, 502, 503) with exponential backoff starting at RetryBaseDelay. A
// Retry-After header in seconds replaces the computed delay.
//
// When maxRetries is 0 the default (3) is used. The throttled response
// body is drained and closed before sleeping. If the context is cancelled
// during a wait the function returns ctx.Err(). After exhausting retries
// the last throttled response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, logger *slog.Logger) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if client == nil {
		client = http.DefaultClient
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := retryDelay(resp, attempt)
		if logger != nil {
			logger.Warn("upstream throttled, backing off",
				"url", req.URL.Redacted(),
				"status", resp.StatusCode,
				"delay", backoff,
				"attempt", attempt+1,
				"max_retries", maxRetries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func retryDelay(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
			d := time.Duration(secs) * time.Second
			if d > maxRetryAfter {
				d = maxRetryAfter
			}
			return d
		}
	}
	return time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
}
