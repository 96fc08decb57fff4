package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithMaxAttempts(5), WithBaseDelay(time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cause := errors.New("boom")
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return cause
	}, WithMaxAttempts(2), WithBaseDelay(time.Millisecond))

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 2, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	cause := errors.New("not found")
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return Permanent(cause)
	}, WithMaxAttempts(5), WithBaseDelay(time.Millisecond))

	assert.Equal(t, cause, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func() error {
		return errors.New("transient")
	}, WithMaxAttempts(5), WithBaseDelay(time.Second))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, calculateBackoff(0, 100*time.Millisecond, time.Second))
	assert.Equal(t, 400*time.Millisecond, calculateBackoff(2, 100*time.Millisecond, time.Second))
	assert.Equal(t, time.Second, calculateBackoff(6, 100*time.Millisecond, time.Second))
}
