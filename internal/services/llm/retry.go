package llm

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// RetryConfig defines retry behaviour for transient model backend failures.
// Interactive conversations favour short waits over long quota windows.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3)
	MaxRetries int

	// InitialBackoff is the wait before the first retry (default: 2s)
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries (default: 30s)
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to backoff on each retry (default: 1.5)
	BackoffMultiplier float64
}

const (
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 2 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 1.5
)

// NewDefaultRetryConfig returns a RetryConfig with the defaults above
func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// IsRateLimitError checks if an error is a provider rate limit error.
// Matches 429 status codes, RESOURCE_EXHAUSTED and overload responses.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "overloaded") ||
		strings.Contains(errStr, "quota")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the API-suggested retry delay from an error.
// Returns 0 if no delay is found in the error message.
//
// Example error message:
// "Error 429, Message: ... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED"
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// CalculateBackoff computes the backoff duration for a given attempt.
// If apiDelay > 0 (from ExtractRetryDelay), it's used as the base.
// The result is capped at MaxBackoff.
func (c *RetryConfig) CalculateBackoff(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay + time.Second
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(base) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}

	return backoff
}

// deltaError marks an error returned by the caller's delta callback
type deltaError struct{ err error }

func (e *deltaError) Error() string { return e.err.Error() }
func (e *deltaError) Unwrap() error { return e.err }

// streamFunc performs one streaming attempt, forwarding fragments to onDelta
type streamFunc func(ctx context.Context, onDelta interfaces.DeltaFunc) (*interfaces.Completion, error)

// withRetry runs call, retrying failed attempts with backoff. Once any
// fragment has reached the caller an attempt is never repeated, so the caller
// never sees duplicated text. Errors from onDelta are returned unchanged;
// backend failures come back as ModelBackendError or BackendTimeoutError.
func withRetry(ctx context.Context, cfg *RetryConfig, logger arbor.ILogger, provider string, onDelta interfaces.DeltaFunc, call streamFunc) (*interfaces.Completion, error) {
	streamed := false
	forward := func(fragment string) error {
		if fragment == "" {
			return nil
		}
		streamed = true
		if onDelta == nil {
			return nil
		}
		if err := onDelta(fragment); err != nil {
			return &deltaError{err: err}
		}
		return nil
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		completion, err := call(ctx, forward)
		if err == nil {
			return completion, nil
		}

		var de *deltaError
		if errors.As(err, &de) {
			return nil, de.err
		}
		if ctx.Err() != nil {
			return nil, wrapModelError(provider, ctx.Err())
		}

		lastErr = err
		if streamed || attempt == cfg.MaxRetries {
			break
		}

		backoff := cfg.CalculateBackoff(attempt, 0)
		if IsRateLimitError(err) {
			backoff = cfg.CalculateBackoff(attempt, ExtractRetryDelay(err))
		}

		logger.Warn().
			Str("provider", provider).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying model call")

		select {
		case <-ctx.Done():
			return nil, wrapModelError(provider, ctx.Err())
		case <-time.After(backoff):
		}
	}

	return nil, wrapModelError(provider, lastErr)
}

func wrapModelError(provider string, err error) error {
	return models.WrapBackendError(provider, err, func(err error) error {
		return &models.ModelBackendError{Provider: provider, Err: err}
	})
}
