package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIntervalFiresRepeatedly(t *testing.T) {
	interval := NewInterval(5 * time.Millisecond)
	t.Cleanup(func() { _ = interval.Stop(context.Background()) })

	var fired atomic.Int32
	require.NoError(t, interval.Start(context.Background(), func(time.Time) {
		fired.Add(1)
	}))

	require.Eventually(t, func() bool {
		return fired.Load() >= 2
	}, time.Second, time.Millisecond)
}

func TestIntervalStopsFiringAfterStop(t *testing.T) {
	interval := NewInterval(5 * time.Millisecond)

	var fired atomic.Int32
	require.NoError(t, interval.Start(context.Background(), func(time.Time) {
		fired.Add(1)
	}))

	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, time.Second, time.Millisecond)
	require.NoError(t, interval.Stop(context.Background()))

	// A job already in flight when Stop returned may finish; give it time,
	// then the count must not move again.
	time.Sleep(20 * time.Millisecond)
	first := fired.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, first, fired.Load())
}

func TestIntervalStopIsIdempotent(t *testing.T) {
	interval := NewInterval(time.Minute)
	require.NoError(t, interval.Start(context.Background(), func(time.Time) {}))

	require.NoError(t, interval.Stop(context.Background()))
	require.NoError(t, interval.Stop(context.Background()))
}

func TestIntervalStartAfterStopDoesNothing(t *testing.T) {
	interval := NewInterval(5 * time.Millisecond)
	require.NoError(t, interval.Stop(context.Background()))

	var fired atomic.Int32
	require.NoError(t, interval.Start(context.Background(), func(time.Time) {
		fired.Add(1)
	}))

	time.Sleep(30 * time.Millisecond)
	require.Zero(t, fired.Load())
}

func TestIntervalConcurrentStartStop(t *testing.T) {
	interval := NewInterval(time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = interval.Start(context.Background(), func(time.Time) {})
	}()
	_ = interval.Stop(context.Background())
	<-done
	require.NoError(t, interval.Stop(context.Background()))
}
