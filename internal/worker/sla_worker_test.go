package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/grievance-service/internal/service"
)

type countingSweeper struct {
	calls    atomic.Int32
	deadline atomic.Bool
}

func (s *countingSweeper) Sweep(ctx context.Context) service.SweepReport {
	s.calls.Add(1)
	_, ok := ctx.Deadline()
	s.deadline.Store(ok)
	return service.SweepReport{Scanned: 2}
}

type blockingSweeper struct {
	started chan struct{}
}

func (s *blockingSweeper) Sweep(ctx context.Context) service.SweepReport {
	close(s.started)
	<-ctx.Done()
	return service.SweepReport{Cancelled: true}
}

func TestRunOnceBoundsTheSweep(t *testing.T) {
	sweeper := &countingSweeper{}
	scheduler := NewSLAScheduler(sweeper, nil, "", time.Second)

	report := scheduler.RunOnce(context.Background())

	assert.Equal(t, 2, report.Scanned)
	assert.EqualValues(t, 1, sweeper.calls.Load())
	assert.True(t, sweeper.deadline.Load())
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	scheduler := NewSLAScheduler(&countingSweeper{}, nil, "not a schedule", time.Second)
	require.Error(t, scheduler.Start())
	require.NoError(t, scheduler.Stop(context.Background()))
}

func TestSchedulerTicksAndStops(t *testing.T) {
	sweeper := &countingSweeper{}
	scheduler := NewSLAScheduler(sweeper, nil, "@every 1s", time.Second)
	require.NoError(t, scheduler.Start())

	assert.Eventually(t, func() bool { return sweeper.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, scheduler.Stop(ctx))
}

func TestStopCancelsInFlightSweep(t *testing.T) {
	sweeper := &blockingSweeper{started: make(chan struct{})}
	scheduler := NewSLAScheduler(sweeper, nil, "@every 1s", time.Minute)
	require.NoError(t, scheduler.Start())

	select {
	case <-sweeper.started:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, scheduler.Stop(ctx))
}

type failingSweeper struct{}

func (failingSweeper) Sweep(context.Context) service.SweepReport {
	return service.SweepReport{Scanned: 1, Errors: []service.SweepError{{TicketID: "t-1", Error: "store unavailable"}}}
}

func TestRunOnceLeavesErrorReportingToSweep(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	scheduler := NewSLAScheduler(failingSweeper{}, zap.New(core), "", time.Second)

	report := scheduler.RunOnce(context.Background())

	assert.Len(t, report.Errors, 1)
	assert.Zero(t, logs.Len())
}

func TestRunOnceLogsTimedOutTick(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sweeper := &blockingSweeper{started: make(chan struct{})}
	scheduler := NewSLAScheduler(sweeper, zap.New(core), "", 20*time.Millisecond)

	report := scheduler.RunOnce(context.Background())

	assert.True(t, report.Cancelled)
	assert.Equal(t, 1, logs.FilterMessageSnippet("tick timed out").Len())
}
