package llm

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls retry behavior for provider requests.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseDelay is the initial backoff delay in seconds.
	BaseDelay float64
	// MaxDelay caps the backoff delay in seconds.
	MaxDelay float64
	// BackoffMultiplier scales the delay after each attempt.
	BackoffMultiplier float64
	// Jitter randomizes delays to avoid thundering herds.
	Jitter bool
	// OnRetry is called before each retry sleep, if set.
	OnRetry func(err error, attempt int, delay float64)
}

// DefaultRetryPolicy matches typical provider guidance.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:        2,
	BaseDelay:         1.0,
	MaxDelay:          60.0,
	BackoffMultiplier: 2.0,
	Jitter:            true,
}

// Delay computes the backoff delay in seconds for the given attempt
// (0-indexed).
func (p RetryPolicy) Delay(attempt int) float64 {
	delay := p.BaseDelay * math.Pow(p.BackoffMultiplier, float64(attempt))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter {
		delay *= 0.5 + rand.Float64()
	}
	return delay
}

// Retry runs fn with the given policy. Non-retryable errors return
// immediately. A RateLimitError carrying a retry-after hint overrides
// the computed backoff; a hint beyond MaxDelay fails immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == policy.MaxRetries {
			break
		}

		delay := policy.Delay(attempt)
		if rle, ok := err.(*RateLimitError); ok && rle.RetryAfter != nil {
			if *rle.RetryAfter > policy.MaxDelay {
				return zero, err
			}
			delay = *rle.RetryAfter
		}

		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}

		select {
		case <-time.After(time.Duration(delay * float64(time.Second))):
		case <-ctx.Done():
			return zero, &AbortError{ClientError{Message: "request cancelled during retry", Cause: ctx.Err()}}
		}
	}

	return zero, lastErr
}
