package retry

import (
	"context"
	"math"
	"time"

	errs "catalogsync/pkg/errors"
)

// Exponential waits Base*Factor^(attempt-1) after the given 1-based failed
// attempt. Cap bounds the delay when set
type Exponential struct {
	Base   time.Duration
	Cap    time.Duration
	Factor float64
}

// Delay returns the wait after attempt failed
func (e Exponential) Delay(attempt int) time.Duration {
	if attempt <= 0 || e.Base <= 0 {
		return 0
	}
	factor := e.Factor
	if factor < 1 {
		factor = 1
	}

	d := float64(e.Base) * math.Pow(factor, float64(attempt-1))
	if e.Cap > 0 && d > float64(e.Cap) {
		return e.Cap
	}
	return time.Duration(d)
}

// Schedule holds one curve per retryable failure class. Throttled waits
// base*2*2^attempt, Unavailable waits base*2^attempt
type Schedule struct {
	Throttled   Exponential
	Unavailable Exponential
}

// NewSchedule builds the catalog schedule for a base delay
func NewSchedule(base, maxDelay time.Duration) Schedule {
	return Schedule{
		Throttled:   Exponential{Base: base * 4, Cap: maxDelay, Factor: 2},
		Unavailable: Exponential{Base: base * 2, Cap: maxDelay, Factor: 2},
	}
}

// Delay picks the curve for errorType
func (s Schedule) Delay(errorType errs.ErrorType, attempt int) time.Duration {
	if errorType == errs.ErrorTypeRateLimited {
		return s.Throttled.Delay(attempt)
	}
	return s.Unavailable.Delay(attempt)
}

// Wait sleeps for delay or until ctx is done
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
