package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	t.Run("success on first try", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(context.Background(), func() error {
			attempts++
			return nil
		}, 3, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("eventual success", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(context.Background(), func() error {
			attempts++
			if attempts < 3 {
				return errors.New("temporary error")
			}
			return nil
		}, 5, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("all attempts fail", func(t *testing.T) {
		attempts := 0
		expected := errors.New("persistent error")
		err := RetryWithBackoff(context.Background(), func() error {
			attempts++
			return expected
		}, 3, time.Millisecond)
		assert.Equal(t, expected, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("context canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		err := RetryWithBackoff(ctx, func() error {
			attempts++
			if attempts == 2 {
				cancel()
			}
			return errors.New("error")
		}, 10, 10*time.Millisecond)
		assert.ErrorIs(t, err, context.Canceled)
		assert.LessOrEqual(t, attempts, 2)
	})

	t.Run("exponential delays", func(t *testing.T) {
		var delays []time.Duration
		last := time.Now()
		attempts := 0
		err := RetryWithBackoff(context.Background(), func() error {
			attempts++
			if attempts > 1 {
				delays = append(delays, time.Since(last))
			}
			last = time.Now()
			if attempts < 4 {
				return errors.New("error")
			}
			return nil
		}, 5, 10*time.Millisecond)
		require.NoError(t, err)
		require.Len(t, delays, 3)
		assert.Greater(t, delays[1], delays[0])
		assert.Greater(t, delays[2], delays[1])
	})

	t.Run("zero max attempts", func(t *testing.T) {
		err := RetryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})
}
