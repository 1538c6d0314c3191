package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	r := New(Config{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	r := New(Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
	calls := 0
	failing := errors.New("persistent")
	err := r.Do(context.Background(), func() error {
		calls++
		return failing
	})
	require.Error(t, err)
	require.ErrorIs(t, err, failing)
	require.Equal(t, 3, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	r := New(Config{MaxAttempts: 10, InitialDelay: 20 * time.Millisecond, MaxDelay: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := r.Do(ctx, func() error {
		calls++
		return errors.New("fail")
	})
	require.Error(t, err)
	require.Less(t, calls, 10)
}
