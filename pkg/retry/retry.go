// Package retry provides bounded exponential backoff for transient failures.
// Only errors classified as retryable by pkg/errors are retried; permanent
// failures surface immediately.
package retry

import (
	"context"
	"time"

	mcerrors "github.com/otherjamesbrown/mycroft/pkg/errors"
)

// Policy defines retry behavior for transient failures.
type Policy struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor"`
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// Backoff calculates the backoff duration before the given attempt (0-based).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return p.InitialBackoff
	}

	backoff := p.InitialBackoff
	for i := 0; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * p.BackoffFactor)
		if backoff > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return backoff
}

// Do runs fn up to MaxAttempts times, sleeping with exponential backoff between
// attempts. It stops early when fn succeeds, when the error classifies as
// permanent, or when ctx is cancelled. The stage name is used for error
// classification only.
func Do(ctx context.Context, policy Policy, stage string, fn func(ctx context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(policy.Backoff(attempt - 1)):
			case <-ctx.Done():
				return mcerrors.ClassifyError(ctx.Err(), stage)
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		classified := mcerrors.ClassifyError(lastErr, stage)
		if !mcerrors.IsRetryable(classified.Code) {
			return classified
		}
		lastErr = classified
	}

	return lastErr
}
