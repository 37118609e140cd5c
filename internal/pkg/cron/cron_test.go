package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRunInterval(t *testing.T) {
	job := Job{Interval: 5 * time.Minute}
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(5*time.Minute), job.nextRun(now))
}

func TestNextRunDailyAt(t *testing.T) {
	job := Job{At: &DailyAt{Hour: 7, Minute: 0, Location: time.UTC}}

	before := time.Date(2026, 9, 1, 6, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC), job.nextRun(before))

	// Past today's slot, the job rolls to tomorrow.
	after := time.Date(2026, 9, 1, 7, 0, 1, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 2, 7, 0, 0, 0, time.UTC), job.nextRun(after))

	exactly := time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 2, 7, 0, 0, 0, time.UTC), job.nextRun(exactly))
}

func TestManualRunUpdatesState(t *testing.T) {
	s := New()
	done := make(chan error, 1)
	s.Register(Job{
		Name:     "job",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			done <- nil
			return nil
		},
	})

	require.NoError(t, s.Run(context.Background(), "job"))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}

	require.Eventually(t, func() bool {
		items := s.List()
		return len(items) == 1 && items[0].Status == StatusFulfill
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManualRunRecordsFailure(t *testing.T) {
	s := New()
	s.Register(Job{
		Name:     "failing",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			return errors.New("boom")
		},
	})

	require.NoError(t, s.Run(context.Background(), "failing"))
	require.Eventually(t, func() bool {
		items := s.List()
		return len(items) == 1 && items[0].Status == StatusReject
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunUnknownJob(t *testing.T) {
	s := New()
	assert.Error(t, s.Run(context.Background(), "ghost"))
}
