// Package retry re-runs calls that failed on throttling or server faults.
// A wait suggested by the server replaces the computed backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"
)

type Config struct {
	// Attempts counts every call, the first one included.
	Attempts int
	Backoff  time.Duration
	MaxWait  time.Duration
	// Jitter spreads each computed wait by +/- this share.
	Jitter float64
}

// Default spaces a handful of attempts out to at most a minute, which is
// what the YouTube Data API asks of clients that hit its rate limits.
func Default() Config {
	return Config{
		Attempts: 4,
		Backoff:  2 * time.Second,
		MaxWait:  time.Minute,
		Jitter:   0.2,
	}
}

// Verdict is a Policy's answer for one failed call. A zero After means the
// computed backoff applies.
type Verdict struct {
	Retry bool
	After time.Duration
}

type Policy func(error) Verdict

// Always retries everything except cancellation.
func Always(err error) Verdict {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Verdict{}
	}
	return Verdict{Retry: true}
}

// PermanentError stops Do whatever the policy says.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// ExhaustedError carries the last failure once every attempt is spent.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls fn until it succeeds, the policy declines, the attempts run out
// or ctx is done. op names the call in logs and in ExhaustedError.
func Do(ctx context.Context, op string, cfg Config, policy Policy, fn func(context.Context) error) error {
	if policy == nil {
		policy = Always
	}
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	backoff := cfg.Backoff
	for n := 1; ; n++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var p *PermanentError
		if errors.As(err, &p) {
			return err
		}
		verdict := policy(err)
		if !verdict.Retry {
			return err
		}
		if n >= attempts {
			return &ExhaustedError{Op: op, Attempts: n, Err: err}
		}

		wait := verdict.After
		if wait <= 0 {
			wait = spread(backoff, cfg.Jitter)
		}
		if cfg.MaxWait > 0 && wait > cfg.MaxWait {
			wait = cfg.MaxWait
		}
		log.Printf("retry op=%s attempt=%d/%d wait=%s: %v", op, n, attempts, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}

		backoff *= 2
		if cfg.MaxWait > 0 && backoff > cfg.MaxWait {
			backoff = cfg.MaxWait
		}
	}
}

func spread(d time.Duration, share float64) time.Duration {
	if share <= 0 || d <= 0 {
		return d
	}
	delta := float64(d) * share * (rand.Float64()*2 - 1)
	return d + time.Duration(delta)
}
