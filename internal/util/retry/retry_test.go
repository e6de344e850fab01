package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() []Option {
	return []Option{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond)}
}

func TestDo(t *testing.T) {
	t.Parallel()

	t.Run("succeeds on first attempt", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := Do(context.Background(), func(context.Context) error {
			attempts++
			return nil
		}, fastRetry()...)
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("succeeds once the dependency comes up", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		var notified []int
		opts := append(fastRetry(), WithNotify(func(attempt int, _ time.Duration, _ error) {
			notified = append(notified, attempt)
		}))
		err := Do(context.Background(), func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("connection refused")
			}
			return nil
		}, opts...)
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, []int{1, 2}, notified)
	})

	t.Run("stops after max attempts", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := Do(context.Background(), func(context.Context) error {
			attempts++
			return errors.New("connection refused")
		}, append(fastRetry(), WithMaxAttempts(4))...)
		require.Error(t, err)
		assert.Equal(t, 4, attempts)
		assert.ErrorContains(t, err, "still failing after 4 attempts")
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		denied := errors.New("access denied")
		err := Do(context.Background(), func(context.Context) error {
			attempts++
			return Permanent(denied)
		}, fastRetry()...)
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
		assert.ErrorIs(t, err, denied)
	})

	t.Run("respects context deadline", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := Do(ctx, func(context.Context) error {
			return errors.New("connection refused")
		}, WithInitialDelay(5*time.Millisecond), WithMaxDelay(5*time.Millisecond), WithMaxAttempts(1000))
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("zero attempts still probes once", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		_ = Do(context.Background(), func(context.Context) error {
			attempts++
			return errors.New("down")
		}, WithMaxAttempts(0))
		assert.Equal(t, 1, attempts)
	})
}

func TestBackoffGrowth(t *testing.T) {
	t.Parallel()
	var delays []time.Duration
	_ = Do(context.Background(), func(context.Context) error {
		return errors.New("down")
	},
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(4*time.Millisecond),
		WithMultiplier(2),
		WithMaxAttempts(5),
		WithNotify(func(_ int, next time.Duration, _ error) { delays = append(delays, next) }),
	)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond}, delays)
}

func TestPermanent(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Permanent(nil))

	base := errors.New("bad credentials")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.False(t, IsPermanent(base))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "bad credentials", err.Error())
}
