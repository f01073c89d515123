package retry

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Mode enumerates supported backoff strategies for retries.
type Mode string

const (
	ModeFixed       Mode = "fixed"
	ModeLinear      Mode = "linear"
	ModeExponential Mode = "exponential"
)

// ParseMode converts arbitrary user input (case-insensitive) into a typed mode, returning empty string for unknown.
func ParseMode(raw string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeFixed:
		return ModeFixed
	case ModeLinear:
		return ModeLinear
	case ModeExponential:
		return ModeExponential
	default:
		return ""
	}
}

// Policy encapsulates retry/backoff settings for transient render failures.
// It is immutable after construction.
type Policy struct {
	Mode       Mode          // fixed|linear|exponential
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // maximum retry attempts after the first failure
}

// DefaultPolicy returns a sensible default policy (linear, 1s initial, 30s cap, 2 retries).
func DefaultPolicy() Policy {
	return Policy{Mode: ModeLinear, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode Mode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	if m := ParseMode(string(mode)); m != "" {
		p.Mode = m
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case ModeFixed:
		return p.Initial
	case ModeExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Do runs fn until it succeeds, returns an error that shouldRetry rejects, the
// retry budget is spent, or ctx is done. attempt is 0 for the first call.
// onRetry, when set, is called before each backoff sleep.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error, shouldRetry func(error) bool, onRetry func(attempt int, delay time.Duration, err error)) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt)
			if onRetry != nil {
				onRetry(attempt, delay, lastErr)
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-timer.C:
			}
		}
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
	}
	return lastErr
}
