package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingLauncher struct {
	launches int
}

func (l *countingLauncher) Launch(ctx context.Context) (Page, error) {
	l.launches++
	return nil, nil
}

func TestThrottleDisabled(t *testing.T) {
	inner := &countingLauncher{}
	require.Same(t, inner, Throttle(inner, 0, 3))
}

func TestThrottleBurst(t *testing.T) {
	inner := &countingLauncher{}
	launcher := Throttle(inner, time.Hour, 2)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := launcher.Launch(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, 2, inner.launches)

	// the next slot is an hour away
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := launcher.Launch(waitCtx)
	require.True(t, errors.Is(err, context.DeadlineExceeded), err)
	require.Equal(t, 2, inner.launches)
}

func TestThrottleCancelled(t *testing.T) {
	inner := &countingLauncher{}
	launcher := Throttle(inner, time.Hour, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := launcher.Launch(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, inner.launches)
}
