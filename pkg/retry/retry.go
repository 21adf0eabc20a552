// Package retry provides context-aware exponential backoff, used around
// LLM provider calls.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Config defines backoff behavior.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// JitterFactor in [0,1] spreads delays to avoid synchronized retries.
	JitterFactor float64
}

// DefaultConfig suits short network calls: two retries starting at 250ms,
// doubling, capped at 2s, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   2,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func withJitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return d
	}
	j := float64(d) * factor * (rand.Float64()*2 - 1)
	return time.Duration(float64(d) + j)
}

// Do runs fn until it succeeds or the retry budget is exhausted. Waits
// respect ctx; the last error is returned on exhaustion.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for functions that return a value.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var zero T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(withJitter(delay, cfg.JitterFactor)):
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
