package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hppeng/hpp-platform/internal/observability"
	"github.com/hppeng/hpp-platform/internal/service"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	block   chan struct{} // when set, Fetch blocks until closed
	started chan struct{} // signaled once Fetch has begun
}

func (r *fakeRunner) FetchYesterdayForAllStations(context.Context) ([]service.RunReport, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	return nil, nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestScheduler(t *testing.T, runner Runner, now time.Time, grace time.Duration) *Scheduler {
	t.Helper()
	s, err := New(runner, "00:30", grace, observability.NewMetricsForTesting())
	require.NoError(t, err)
	s.clock = clockwork.NewFakeClockAt(now)
	return s
}

func TestRunOnceWithinGrace(t *testing.T) {
	runner := &fakeRunner{}
	// 00:45, fifteen minutes after the nominal 00:30 fire: inside grace.
	now := time.Date(2024, 1, 16, 0, 45, 0, 0, time.UTC)
	s := newTestScheduler(t, runner, now, time.Hour)

	s.runOnce()

	assert.Equal(t, 1, runner.callCount())
	assert.Equal(t, 0.0, testutil.ToFloat64(s.metrics.Misfires))
}

func TestRunOnceDroppedBeyondGrace(t *testing.T) {
	runner := &fakeRunner{}
	// 02:00 is ninety minutes late against a one-hour grace window.
	now := time.Date(2024, 1, 16, 2, 0, 0, 0, time.UTC)
	s := newTestScheduler(t, runner, now, time.Hour)

	s.runOnce()

	assert.Equal(t, 0, runner.callCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Misfires))
}

func TestRunOnceNominalFireWrapsMidnight(t *testing.T) {
	runner := &fakeRunner{}
	// 00:10 is before today's 00:30, so the nominal fire is yesterday's;
	// that makes the delay nearly a day and the run must be dropped.
	now := time.Date(2024, 1, 16, 0, 10, 0, 0, time.UTC)
	s := newTestScheduler(t, runner, now, time.Hour)

	s.runOnce()

	assert.Equal(t, 0, runner.callCount())
}

func TestRunOnceSkipsWhileInFlight(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{}), started: make(chan struct{}, 1)}
	now := time.Date(2024, 1, 16, 0, 30, 0, 0, time.UTC)
	s := newTestScheduler(t, runner, now, time.Hour)

	done := make(chan struct{})
	go func() {
		s.runOnce()
		close(done)
	}()
	<-runner.started

	// A second fire while the first is executing is absorbed, not queued.
	s.runOnce()
	assert.Equal(t, 1, runner.callCount())

	close(runner.block)
	<-done

	// Once the slot is free the next fire executes again.
	s.runOnce()
	assert.Equal(t, 2, runner.callCount())
}

func TestNewRejectsBadWallTime(t *testing.T) {
	for _, at := range []string{"", "0030", "24:00", "12:60", "aa:bb"} {
		_, err := New(&fakeRunner{}, at, time.Hour, observability.NewMetricsForTesting())
		assert.Error(t, err, "FETCH_AT %q should be rejected", at)
	}
}
