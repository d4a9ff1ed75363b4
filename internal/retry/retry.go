// Package retry retries establishing a database connection.
//
// Only connecting is retried. Statements run exactly once.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loykin/sqlapply/internal/common"
)

// Config holds configuration for connection retries
type Config struct {
	MaxRetries      int           // Retries after the first attempt; 0 means a single attempt
	InitialDelay    time.Duration // Delay before the first retry
	MaxDelay        time.Duration // Upper bound for the delay between retries
	BackoffFactor   float64       // Multiplier for exponential backoff
	RetryableErrors []string      // Lower-case error fragments that trigger a retry
}

// DefaultConfig returns the backoff used when retries are enabled. MaxRetries
// is left at zero; callers opt in.
func DefaultConfig() *Config {
	return &Config{
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: []string{
			"connection refused",
			"connection reset",
			"i/o timeout",
			"broken pipe",
			"bad connection",
			"server has gone away",
			"too many connections",
			"the database system is starting up",
			"database is locked",
		},
	}
}

// WithMaxRetries returns DefaultConfig with MaxRetries set to n.
func WithMaxRetries(n int) *Config {
	c := DefaultConfig()
	if n > 0 {
		c.MaxRetries = n
	}
	return c
}

func (rc *Config) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, frag := range rc.RetryableErrors {
		if strings.Contains(errStr, frag) {
			return true
		}
	}
	return false
}

// calculateDelay returns the wait before retry number attempt (1-based).
func (rc *Config) calculateDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return rc.InitialDelay
	}
	delay := time.Duration(float64(rc.InitialDelay) * math.Pow(rc.BackoffFactor, float64(attempt-1)))
	if delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}
	return delay
}

// Do calls connect until it succeeds, fails with a non-retryable error, or
// the retries are used up. A nil config means a single attempt.
func Do[T any](ctx context.Context, config *Config, connect func(context.Context) (T, error)) (T, error) {
	if config == nil {
		return connect(ctx)
	}
	logger := common.GetLogger().WithComponent("retry")

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		v, err := connect(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("connected after retry", "attempt", attempt+1)
			}
			return v, nil
		}
		lastErr = err

		if attempt == config.MaxRetries {
			break
		}
		if !config.isRetryableError(err) {
			return zero, err
		}

		delay := config.calculateDelay(attempt + 1)
		logger.Warn("connect failed, retrying",
			"error", err,
			"attempt", attempt+1,
			"max_attempts", config.MaxRetries+1,
			"retry_delay", delay)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("connect cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	if config.MaxRetries == 0 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("connect failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}
