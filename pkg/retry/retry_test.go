package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "catalogsync/pkg/errors"
	"catalogsync/pkg/logger"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func testPolicy(maxRetries int) (*Policy, *sleepRecorder) {
	rec := &sleepRecorder{}
	p := NewPolicy("test", maxRetries, 100*time.Millisecond, 0).
		WithSleep(rec.sleep).
		WithLogger(logger.NewNopLogger())
	return p, rec
}

func TestExponentialDelay(t *testing.T) {
	curve := Exponential{Base: 100 * time.Millisecond, Cap: time.Second, Factor: 2}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, curve.Delay(tt.attempt))
		})
	}

	assert.Equal(t, 100*time.Millisecond, Exponential{Base: 100 * time.Millisecond}.Delay(3), "factor below 1 stays flat")
}

func TestScheduleDelay(t *testing.T) {
	s := NewSchedule(time.Second, 0)

	// base * 2^attempt
	assert.Equal(t, 2*time.Second, s.Delay(errs.ErrorTypeServerUnavailable, 1))
	assert.Equal(t, 8*time.Second, s.Delay(errs.ErrorTypeTimeout, 3))

	// base * 2 * 2^attempt
	assert.Equal(t, 4*time.Second, s.Delay(errs.ErrorTypeRateLimited, 1))
	assert.Equal(t, 16*time.Second, s.Delay(errs.ErrorTypeRateLimited, 3))

	capped := NewSchedule(time.Second, 5*time.Second)
	assert.Equal(t, 5*time.Second, capped.Delay(errs.ErrorTypeRateLimited, 4))
}

func TestDoSuccessFirstAttempt(t *testing.T) {
	p, rec := testPolicy(3)

	result, used, err := Do(context.Background(), p, 50, func(_ context.Context, count int) (int, error) {
		return count * 2, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 100, result)
	assert.Equal(t, 50, used)
	assert.Empty(t, rec.delays)
}

func TestDoRateLimitedThenSuccess(t *testing.T) {
	p, rec := testPolicy(5)
	attempts := 0

	result, used, err := Do(context.Background(), p.WithShrink(10), 50, func(_ context.Context, count int) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errs.New(errs.ErrorTypeRateLimited, 6, "too many requests per second")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 50, used, "rate limits never shrink the page")
	assert.Equal(t, []time.Duration{400 * time.Millisecond}, rec.delays)
}

func TestDoShrinksOnGatewayTimeout(t *testing.T) {
	p, rec := testPolicy(5)
	var counts []int

	_, used, err := Do(context.Background(), p.WithShrink(10), 50, func(_ context.Context, count int) (int, error) {
		counts = append(counts, count)
		if count > 25 {
			return 0, errs.New(errs.ErrorTypeServerUnavailable, 504, "gateway timeout")
		}
		return count, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{50, 25}, counts)
	assert.Equal(t, 25, used)
	assert.Empty(t, rec.delays, "shrinking retries immediately")
}

func TestDoShrinkRespectsFloor(t *testing.T) {
	p, rec := testPolicy(4)
	var counts []int

	_, _, err := Do(context.Background(), p.WithShrink(10), 30, func(_ context.Context, count int) (int, error) {
		counts = append(counts, count)
		return 0, errs.New(errs.ErrorTypeTimeout, 0, "deadline exceeded")
	})

	require.Error(t, err)
	assert.Equal(t, []int{30, 15, 10, 10}, counts)
	// Only the attempt made at the floor sleeps
	assert.Equal(t, []time.Duration{800 * time.Millisecond}, rec.delays)
}

func TestDoWithoutShrinkSleeps(t *testing.T) {
	p, rec := testPolicy(3)
	var counts []int

	_, _, err := Do(context.Background(), p, 100, func(_ context.Context, count int) (int, error) {
		counts = append(counts, count)
		return 0, errs.New(errs.ErrorTypeServerUnavailable, 503, "unavailable")
	})

	require.Error(t, err)
	assert.Equal(t, []int{100, 100, 100}, counts)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, rec.delays)
}

func TestDoClientErrorFailsImmediately(t *testing.T) {
	p, rec := testPolicy(5)
	attempts := 0

	_, _, err := Do(context.Background(), p, 10, func(_ context.Context, _ int) (int, error) {
		attempts++
		return 0, errs.New(errs.ErrorTypeClient, 15, "access denied")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.delays)
	assert.True(t, errs.Is(err, errs.ErrorTypeClient))
}

func TestDoUnclassifiedErrorPropagates(t *testing.T) {
	p, _ := testPolicy(5)
	boom := errors.New("decode failure")
	attempts := 0

	_, _, err := Do(context.Background(), p, 10, func(_ context.Context, _ int) (int, error) {
		attempts++
		return 0, boom
	})

	assert.Equal(t, 1, attempts)
	assert.Same(t, boom, err)
}

func TestDoExhaustedReturnsLastClassifiedError(t *testing.T) {
	p, _ := testPolicy(3)

	_, _, err := Do(context.Background(), p, 10, func(_ context.Context, _ int) (int, error) {
		return 0, errs.New(errs.ErrorTypeRateLimited, 29, "rate limit reached")
	})

	require.Error(t, err)
	var classified *errs.Error
	require.True(t, errors.As(err, &classified))
	assert.Equal(t, errs.ErrorTypeRateLimited, classified.Type)
	assert.Equal(t, 29, classified.Code)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	p := NewPolicy("test", 3, time.Hour, 0).WithLogger(logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Do(ctx, p, 10, func(_ context.Context, _ int) (int, error) {
		return 0, errs.New(errs.ErrorTypeServerUnavailable, 502, "bad gateway")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), 0))
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Minute), context.Canceled)
}
