package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepExpired(context.Context) (int64, error) {
	c.calls.Add(1)
	return 3, c.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler("every now and then", &countingSweeper{}, quietLogger())
	assert.Error(t, err)
}

func TestNewSchedulerEmptySpecSchedulesNothing(t *testing.T) {
	s, err := NewScheduler("", &countingSweeper{}, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, s.cron.Entries())
}

func TestSweepRunsSweeper(t *testing.T) {
	sweeper := &countingSweeper{}
	s, err := NewScheduler("@every 15m", sweeper, quietLogger())
	require.NoError(t, err)
	require.Len(t, s.cron.Entries(), 1)

	s.sweep(sweeper)
	sweeper.err = errors.New("store unavailable")
	s.sweep(sweeper)
	assert.EqualValues(t, 2, sweeper.calls.Load())

	s.Start()
	s.Stop(context.Background())
}
