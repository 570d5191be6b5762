package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, Policy{
		Attempts: 5,
		Backoff:  ExpoJitter{Base: time.Millisecond, Max: 5 * time.Millisecond},
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return fatal
	}, Policy{
		Attempts:  5,
		Backoff:   ExpoJitter{Base: time.Millisecond},
		Retryable: func(err error) bool { return !errors.Is(err, fatal) },
	})
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	var exhausted error
	err := Do(context.Background(), func() error {
		calls++
		return errors.New("still down")
	}, Policy{
		Attempts:  3,
		Backoff:   ExpoJitter{Base: time.Millisecond},
		OnExhaust: func(e error) { exhausted = e },
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, err, exhausted)
}

func TestDoHonorsContextDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Do(ctx, func() error { return errors.New("down") }, Policy{
		Attempts: 10,
		Backoff:  ExpoJitter{Base: time.Hour},
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExpoJitterCapped(t *testing.T) {
	b := ExpoJitter{Base: time.Second, Max: 4 * time.Second}
	require.Equal(t, time.Second, b.Next(0))
	require.Equal(t, 4*time.Second, b.Next(10))
}
