package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyScheduler_RunsImmediatelyAndOnInterval(t *testing.T) {
	var runs atomic.Int32
	scheduler := NewDailyScheduler(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, scheduler.Start(ctx, func(time.Time) { runs.Add(1) }))

	assert.Eventually(t, func() bool { return runs.Load() >= 2 },
		time.Second, 5*time.Millisecond, "first run fires on Start, later runs on the ticker")

	require.NoError(t, scheduler.Stop(ctx))
	settled := runs.Load()
	time.Sleep(60 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), settled+1, "no more runs after Stop")
}

func TestDailyScheduler_ContextCancelStopsTicker(t *testing.T) {
	var runs atomic.Int32
	scheduler := NewDailyScheduler(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx, func(time.Time) { runs.Add(1) }))

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()

	settled := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), settled+1)
}

func TestDailyScheduler_NilJobAndDoubleStart(t *testing.T) {
	scheduler := NewDailyScheduler(time.Hour)
	ctx := context.Background()

	require.NoError(t, scheduler.Start(ctx, nil))
	require.NoError(t, scheduler.Start(ctx, func(time.Time) {}))
	require.NoError(t, scheduler.Start(ctx, func(time.Time) {}))
	require.NoError(t, scheduler.Stop(ctx))
	require.NoError(t, scheduler.Stop(ctx))
}
