package resilience

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"
)

// ErrRetryBudgetExhausted is returned (wrapped together with the last
// operation error) when every attempt allowed by a Policy has failed.
var ErrRetryBudgetExhausted = errors.New("resilience: retry budget exhausted")

// Backoff returns the wait before the next attempt, given how many attempts
// have failed so far (1 after the first failure).
type Backoff func(failures int) time.Duration

// FixedBackoff waits d between every attempt.
func FixedBackoff(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// LinearBackoff waits step, 2*step, 3*step... capped at maxWait.
func LinearBackoff(step, maxWait time.Duration) Backoff {
	return func(failures int) time.Duration {
		wait := step * time.Duration(max(failures, 1))
		if maxWait > 0 && wait > maxWait {
			return maxWait
		}
		return wait
	}
}

// ExponentialBackoff waits base*multiplier^(failures-1), capped at maxWait,
// with +/- jitter (0.0-1.0) drawn from crypto/rand.
func ExponentialBackoff(base, maxWait time.Duration, multiplier, jitter float64) Backoff {
	return func(failures int) time.Duration {
		wait := float64(base)
		for i := 1; i < failures; i++ {
			wait *= multiplier
			if maxWait > 0 && wait > float64(maxWait) {
				break
			}
		}
		if maxWait > 0 && wait > float64(maxWait) {
			wait = float64(maxWait)
		}

		if jitter > 0 {
			jitterRange := wait * jitter
			if n, err := rand.Int(rand.Reader, big.NewInt(int64(jitterRange*2)+1)); err == nil {
				wait += float64(n.Int64()) - jitterRange
			}
		}
		return time.Duration(wait)
	}
}

// Sleeper abstracts time-based waiting so tests can skip real delays.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy describes how an operation is retried.
type Policy struct {
	// Name identifies the operation in log lines.
	Name string
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int
	Backoff     Backoff
	// Retryable decides whether an error consumes budget and is retried.
	// Nil means IsTransient.
	Retryable func(error) bool
	// Delay, when set and positive for an error, replaces Backoff for the
	// wait that follows it. Used for server-supplied retry_after hints.
	Delay   func(error) time.Duration
	Sleeper Sleeper
	Logger  *slog.Logger
	// LogLevel for the per-attempt retry line. Nil means WARN.
	LogLevel slog.Leveler
}

// DefaultPolicy returns the policy used for reply sends: 3 attempts, 300s apart.
func DefaultPolicy(name string) Policy {
	return Policy{
		Name:        name,
		MaxAttempts: 3,
		Backoff:     FixedBackoff(300 * time.Second),
		Retryable:   IsTransient,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = FixedBackoff(0)
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	if p.Sleeper == nil {
		p.Sleeper = realSleeper{}
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.LogLevel == nil {
		p.LogLevel = slog.LevelWarn
	}
	return p
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// policy's attempts are used up.
//
// Each retryable failure is logged as "[retry n/max] error: msg". A wait
// only happens when another attempt remains. Cancelling ctx aborts the wait
// and returns ctx.Err().
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) {
			return zero, err
		}
		lastErr = err

		p.Logger.Log(ctx, p.LogLevel.Level(), fmt.Sprintf("[retry %d/%d] error: %s", attempt, p.MaxAttempts, err),
			"op", p.Name,
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
		)

		if attempt == p.MaxAttempts {
			break
		}
		if err := p.Sleeper.Sleep(ctx, p.wait(attempt, err)); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w: %s failed after %d attempts: %w",
		ErrRetryBudgetExhausted, p.Name, p.MaxAttempts, lastErr)
}

func (p Policy) wait(failures int, err error) time.Duration {
	if p.Delay != nil {
		if d := p.Delay(err); d > 0 {
			return d
		}
	}
	return p.Backoff(failures)
}

// Wrap binds op to p, returning a function with the same shape that
// retries according to the policy.
func Wrap[T any](p Policy, op func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Do(ctx, p, op)
	}
}
