package chatsync

import (
	"context"
	"log/slog"
	"time"

	domainchat "devlink/internal/domain/chat"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = time.Second
)

// RetryPolicy bounds retries of transient rate-limit failures with doubling
// backoff. Sleep is injectable so tests can observe delays without waiting.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Sleep        func(ctx context.Context, d time.Duration) error
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = defaultInitialDelay
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// WithRetry runs fn, retrying only rate-limit rejections, waiting
// InitialDelay, then double that, and so on between attempts. Any other error
// returns immediately. Once the attempt budget is spent the last error comes
// back wrapped in RetryExhaustedError. Callers must treat this as a
// potentially multi-second suspension point.
func WithRetry[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	p := policy.withDefaults()
	delay := p.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !domainchat.IsRateLimited(err) {
			return zero, err
		}
		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}
		if logger != nil {
			logger.Warn("transient failure, backing off", "op", op, "attempt", attempt, "delay", delay, "error", err)
		}
		if err := p.Sleep(ctx, delay); err != nil {
			return zero, err
		}
		delay *= 2
	}
	return zero, &domainchat.RetryExhaustedError{Attempts: p.MaxAttempts, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
