package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery_RejectsNonPositiveInterval(t *testing.T) {
	s := New(nil)
	_, err := s.Every("bad", 0, func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestEvery_RunsJob(t *testing.T) {
	s := New(time.UTC)
	var runs atomic.Int32
	_, err := s.Every("tick", time.Second, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestRunNow_SurvivesErrors(t *testing.T) {
	s := New(nil)
	called := false
	assert.NotPanics(t, func() {
		s.RunNow("failing", func(context.Context) error {
			called = true
			return errors.New("boom")
		})
	})
	assert.True(t, called)
}

func TestStop_CancelsJobContext(t *testing.T) {
	s := New(nil)
	var ctx context.Context
	s.RunNow("capture", func(c context.Context) error {
		ctx = c
		return nil
	})
	s.Start()
	s.Stop()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
