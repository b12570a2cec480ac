package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_EnqueueRecordsRuns(t *testing.T) {
	w := NewWorker(1)

	done := make(chan struct{})
	w.Enqueue("ok", func(ctx context.Context) error {
		close(done)
		return nil
	})
	<-done

	w.Shutdown()

	runs := w.GetRuns()
	require.Contains(t, runs, "ok")
	assert.Equal(t, int64(1), runs["ok"].Runs)
	assert.Empty(t, runs["ok"].LastError)
	assert.Equal(t, int64(1), w.GetStats().CompletedJobs)
}

func TestWorker_FailuresAndPanics(t *testing.T) {
	w := NewWorker(1)

	w.EnqueueAsync("fails", func(ctx context.Context) error {
		return errors.New("boom")
	})
	w.EnqueueAsync("panics", func(ctx context.Context) error {
		panic("kaboom")
	})
	w.Shutdown()

	stats := w.GetStats()
	assert.Equal(t, int64(2), stats.FailedJobs)
	assert.Equal(t, int64(2), stats.CompletedJobs)
	assert.Equal(t, 0, stats.ActiveJobs)

	runs := w.GetRuns()
	assert.Equal(t, "boom", runs["fails"].LastError)
	assert.Contains(t, runs["panics"].LastError, "kaboom")
}

func TestWorker_ScheduleEveryImmediate(t *testing.T) {
	w := NewWorker(1)

	var calls int32
	w.ScheduleEveryImmediate(time.Hour, "sweep", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	w.Shutdown()
	assert.Equal(t, int64(1), w.GetRuns()["sweep"].Runs)
}
