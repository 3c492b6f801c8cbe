package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dbrevel/cli/internal/errors"
)

func fastPolicy(maxRetries int) Policy {
	p := DefaultPolicy()
	p.MaxRetries = maxRetries
	p.RetryDelay = time.Millisecond
	p.MaxRetryDelay = 5 * time.Millisecond
	return p
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, time.Second, p.RetryDelay)
	assert.Equal(t, 10*time.Second, p.MaxRetryDelay)
	assert.Equal(t, 2.0, p.BackoffMultiplier)
	assert.Equal(t, []int{500, 502, 503, 504}, p.RetryableStatusCodes)
	assert.Equal(t, []apperrors.Kind{apperrors.Network, apperrors.Timeout}, p.RetryableKinds)
}

func TestDelay(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{20, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Delay(tt.n), "delay(%d)", tt.n)
	}
}

func TestDelayMonotonicAndCapped(t *testing.T) {
	policies := []Policy{
		DefaultPolicy(),
		{RetryDelay: 250 * time.Millisecond, MaxRetryDelay: 3 * time.Second, BackoffMultiplier: 1.5},
		{RetryDelay: time.Second, MaxRetryDelay: time.Second, BackoffMultiplier: 3},
		{RetryDelay: 100 * time.Millisecond, MaxRetryDelay: time.Minute, BackoffMultiplier: 1},
	}
	for _, p := range policies {
		prev := time.Duration(0)
		for n := 1; n <= 64; n++ {
			d := p.Delay(n)
			assert.GreaterOrEqual(t, d, prev)
			assert.LessOrEqual(t, d, p.MaxRetryDelay)
			prev = d
		}
	}
}

func TestDoRecoversAfterNetworkFailures(t *testing.T) {
	for _, failures := range []int{0, 1, 2, 3} {
		calls := 0
		out, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context, attempt int) (string, error) {
			calls++
			if calls <= failures {
				return "", apperrors.NewNetwork(stderrors.New("connection reset"))
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, failures+1, calls)
	}
}

func TestDoNonRetryableAPIErrorFailsFast(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 422} {
		calls := 0
		_, err := Do(context.Background(), fastPolicy(5), func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, apperrors.NewAPI(status, nil, "client error")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls, "status %d", status)
		assert.Equal(t, status, apperrors.StatusOf(err))
	}
}

func TestDoStopsWhenStatusLeavesRetryableSet(t *testing.T) {
	statuses := []int{503, 501, 503}
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, apperrors.NewAPI(statuses[attempt-1], nil, "server error")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 501, apperrors.StatusOf(err))
}

func TestDoExhaustsRetryableStatuses(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(2), func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, apperrors.NewAPI(503, nil, "unavailable")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 503, apperrors.StatusOf(err))
}

func TestShouldRetryOverride(t *testing.T) {
	t.Run("false suppresses retryable errors", func(t *testing.T) {
		p := fastPolicy(3)
		p.ShouldRetry = func(err error, attempt int) bool { return false }
		calls := 0
		_, err := Do(context.Background(), p, func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, apperrors.NewTimeout(time.Second, nil)
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("true retries unrecognized errors", func(t *testing.T) {
		p := fastPolicy(2)
		p.ShouldRetry = func(err error, attempt int) bool { return true }
		calls := 0
		_, err := Do(context.Background(), p, func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, stderrors.New("odd failure")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("validation is never retried", func(t *testing.T) {
		p := fastPolicy(3)
		p.ShouldRetry = func(err error, attempt int) bool { return true }
		calls := 0
		_, err := Do(context.Background(), p, func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, apperrors.NewValidation("intent", "empty")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.True(t, apperrors.Is(err, apperrors.Validation))
	})

	t.Run("attempt numbers are passed", func(t *testing.T) {
		p := fastPolicy(3)
		var seen []int
		p.ShouldRetry = func(err error, attempt int) bool {
			seen = append(seen, attempt)
			return attempt < 2
		}
		_, _ = Do(context.Background(), p, func(ctx context.Context, attempt int) (int, error) {
			return 0, apperrors.NewNetwork(stderrors.New("x"))
		})
		assert.Equal(t, []int{1, 2}, seen)
	})
}

func TestUnknownErrorsAreNotRetriedByDefault(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, stderrors.New("plain")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestOnRetryObservesDelays(t *testing.T) {
	p := fastPolicy(3)
	var delays []time.Duration
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}
	_, _ = Do(context.Background(), p, func(ctx context.Context, attempt int) (int, error) {
		return 0, apperrors.NewNetwork(stderrors.New("x"))
	})
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}, delays)
}

func TestCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(5)
	p.RetryDelay = time.Hour
	p.MaxRetryDelay = time.Hour

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, apperrors.NewNetwork(stderrors.New("x"))
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.Cancelled))
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
}

func TestCancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, fastPolicy(3), func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 1, nil
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.Cancelled))
	assert.Equal(t, 0, calls)
}
