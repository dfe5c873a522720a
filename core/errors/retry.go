package errors

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy defines the retry behavior for a specific error tier.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of retry attempts (0 means no retry).
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay is the starting backoff duration.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay is the maximum backoff duration.
	MaxDelay time.Duration `yaml:"max_delay"`

	// Multiplier is the backoff multiplier (default: 2.0).
	Multiplier float64 `yaml:"multiplier"`

	// JitterPercent is the jitter percentage (default: 0.1 for 10%).
	JitterPercent float64 `yaml:"jitter_percent"`
}

// DefaultRetryPolicies returns the default retry policies for each error tier.
func DefaultRetryPolicies() map[ErrorTier]*RetryPolicy {
	return map[ErrorTier]*RetryPolicy{
		TierTransient:   defaultTransientPolicy(),
		TierPermanent:   defaultNoRetryPolicy(),
		TierUserFixable: defaultNoRetryPolicy(),
	}
}

// defaultTransientPolicy covers a locked state database held by another
// process for a few hundred milliseconds.
func defaultTransientPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:   5,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		Multiplier:    2.0,
		JitterPercent: 0.1,
	}
}

func defaultNoRetryPolicy() *RetryPolicy {
	return &RetryPolicy{}
}

// GetRetryPolicy returns the retry policy for a given error tier.
func GetRetryPolicy(tier ErrorTier) *RetryPolicy {
	if policy, ok := DefaultRetryPolicies()[tier]; ok {
		return policy
	}
	return defaultNoRetryPolicy()
}

// Delay returns the wait before retry number attempt (zero based):
// InitialDelay * Multiplier^attempt capped at MaxDelay, then spread by
// ±JitterPercent so that processes contending for one state database do
// not wake together.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if p == nil || p.InitialDelay <= 0 {
		return 0
	}

	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	d := float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}

	if p.JitterPercent > 0 {
		d += (rand.Float64()*2 - 1) * d * p.JitterPercent
	}
	return time.Duration(max(d, 0))
}

// Retry runs fn until it succeeds, returns an error that is not retryable,
// or the policy runs out of attempts. The last error is returned.
func Retry(ctx context.Context, policy *RetryPolicy, fn func() error) error {
	if policy == nil {
		policy = defaultNoRetryPolicy()
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) || attempt >= policy.MaxAttempts {
			return lastErr
		}

		if err := waitBeforeRetry(ctx, policy.Delay(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// waitBeforeRetry waits for the specified delay or returns if context is cancelled.
func waitBeforeRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
