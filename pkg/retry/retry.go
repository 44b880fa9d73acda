package retry

import (
	"context"
	"fmt"
	"time"

	errs "catalogsync/pkg/errors"
	"catalogsync/pkg/logger"
)

// Operation performs one catalog call requesting count items.
// Calls that do not paginate ignore count
type Operation[T any] func(ctx context.Context, count int) (T, error)

// SleepFunc blocks for the given duration or until the context is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy is the retry policy shared by every catalog call site
type Policy struct {
	// Name identifies the call site in logs and errors
	Name string
	// MaxRetries is the maximum number of attempts
	MaxRetries int
	// Backoff selects the delay per error type
	Backoff Schedule
	// ShrinkFloor enables halving the requested count on gateway
	// failures and timeouts while the count is above it. Zero disables
	ShrinkFloor int
	// Sleep is used between attempts
	Sleep SleepFunc
	// Logger for retry attempts
	Logger logger.Logger
}

// NewPolicy returns a policy without page-size shrinking
func NewPolicy(name string, maxRetries int, baseDelay, maxDelay time.Duration) *Policy {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Policy{
		Name:       name,
		MaxRetries: maxRetries,
		Backoff:    NewSchedule(baseDelay, maxDelay),
		Sleep:      Wait,
		Logger:     logger.GetLogger(),
	}
}

// WithShrink returns a copy of the policy that halves the page size down to floor
func (p *Policy) WithShrink(floor int) *Policy {
	cp := *p
	cp.ShrinkFloor = floor
	return &cp
}

// WithSleep returns a copy of the policy using a custom sleep function
func (p *Policy) WithSleep(sleep SleepFunc) *Policy {
	cp := *p
	cp.Sleep = sleep
	return &cp
}

// WithLogger returns a copy of the policy logging to l
func (p *Policy) WithLogger(l logger.Logger) *Policy {
	cp := *p
	cp.Logger = l
	return &cp
}

func (p *Policy) log() logger.Logger {
	if p.Logger == nil {
		return logger.NewNopLogger()
	}
	return p.Logger
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// policy runs out of attempts. It returns the result together with the count
// the successful attempt was made with, which is smaller than count when the
// page size was shrunk.
//
// Errors are classified first. Rate limits always sleep and never shrink.
// Gateway failures and timeouts halve the count and retry immediately while
// the policy allows shrinking and the count is above the floor, otherwise they
// sleep. Client errors and unclassified errors are returned as is
func Do[T any](ctx context.Context, p *Policy, count int, op Operation[T]) (T, int, error) {
	var zero T
	var lastErr error

	sleep := p.Sleep
	if sleep == nil {
		sleep = Wait
	}
	log := p.log()

	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		result, err := op(ctx, count)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("catalog call succeeded after retry", map[string]interface{}{
					"call":    p.Name,
					"attempt": attempt,
					"count":   count,
				})
			}
			return result, count, nil
		}

		lastErr = err
		errorType := errs.TypeOf(err)

		if !errs.IsRetryable(errorType) {
			log.DebugWithFields("error is not retryable", map[string]interface{}{
				"call":  p.Name,
				"error": err.Error(),
			})
			return zero, count, err
		}

		if attempt == p.MaxRetries {
			break
		}

		if errs.IsShrinkable(errorType) && p.ShrinkFloor > 0 && count > p.ShrinkFloor {
			next := count / 2
			if next < p.ShrinkFloor {
				next = p.ShrinkFloor
			}
			log.WarnWithFields("shrinking page size", map[string]interface{}{
				"call":       p.Name,
				"attempt":    attempt,
				"error_type": string(errorType),
				"from":       count,
				"to":         next,
			})
			count = next
			continue
		}

		delay := p.Backoff.Delay(errorType, attempt)
		if errorType == errs.ErrorTypeRateLimited {
			logger.LogRateLimit(log, p.Name, attempt, delay)
		} else {
			log.WarnWithFields("retrying catalog call", map[string]interface{}{
				"call":         p.Name,
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": p.MaxRetries,
			})
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, count, fmt.Errorf("retry cancelled: %w", err)
		}
	}

	log.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
		"call":       p.Name,
		"attempts":   p.MaxRetries,
		"last_error": lastErr.Error(),
	})
	return zero, count, fmt.Errorf("%s: max retry attempts (%d) exceeded: %w", p.Name, p.MaxRetries, lastErr)
}
