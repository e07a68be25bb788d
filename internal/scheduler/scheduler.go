// Package scheduler owns the recurring daily trigger for the ingestion
// fan-out. At most one scheduled run is in flight at a time; a run firing
// too long after its nominal time is dropped instead of executed.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hppeng/hpp-platform/internal/observability"
	"github.com/hppeng/hpp-platform/internal/service"
)

// Runner is the fan-out entry point the trigger fires. Satisfied by
// *service.RainService.
type Runner interface {
	FetchYesterdayForAllStations(ctx context.Context) ([]service.RunReport, error)
}

// Scheduler fires the daily ingestion run at a fixed UTC wall time.
type Scheduler struct {
	sched   *gocron.Scheduler
	runner  Runner
	metrics *observability.Metrics
	clock   clockwork.Clock

	fireHour   int
	fireMinute int
	grace      time.Duration

	inFlight atomic.Bool
}

// New builds a scheduler firing daily at the "HH:MM" UTC wall time. A
// delayed fire is still executed while within grace of its nominal time,
// and dropped beyond it.
func New(runner Runner, at string, grace time.Duration, metrics *observability.Metrics) (*Scheduler, error) {
	hour, minute, err := parseWallTime(at)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		sched:      gocron.NewScheduler(time.UTC),
		runner:     runner,
		metrics:    metrics,
		clock:      clockwork.NewRealClock(),
		fireHour:   hour,
		fireMinute: minute,
		grace:      grace,
	}, nil
}

// Start registers the daily job and starts the trigger loop.
func (s *Scheduler) Start() error {
	at := fmt.Sprintf("%02d:%02d", s.fireHour, s.fireMinute)
	if _, err := s.sched.Every(1).Day().At(at).Do(s.runOnce); err != nil {
		return fmt.Errorf("schedule daily rain fetch: %w", err)
	}
	s.sched.StartAsync()
	log.Info().Str("at", at+" UTC").Msg("rain scheduler started")
	return nil
}

// Stop halts the trigger. An in-flight run is not interrupted.
func (s *Scheduler) Stop() {
	s.sched.Stop()
	log.Info().Msg("rain scheduler stopped")
}

// runOnce is the guarded job body. Missed or overlapping fires are
// absorbed rather than queued.
func (s *Scheduler) runOnce() {
	now := s.clock.Now().UTC()

	if delay := now.Sub(s.nominalFire(now)); delay > s.grace {
		s.metrics.Misfires.Inc()
		log.Warn().Dur("delay", delay).Msg("scheduled rain run missed its grace window; dropping")
		return
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		log.Warn().Msg("previous scheduled rain run still in flight; skipping")
		return
	}
	defer s.inFlight.Store(false)

	s.metrics.SchedulerBusy.Set(1)
	defer s.metrics.SchedulerBusy.Set(0)

	reports, err := s.runner.FetchYesterdayForAllStations(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("scheduled rain run failed")
		return
	}

	failed := 0
	for _, rep := range reports {
		if rep.Error != "" {
			failed++
		}
	}
	log.Info().Int("stations", len(reports)).Int("failed", failed).Msg("scheduled rain run done")
}

// nominalFire is the most recent scheduled wall time not after now.
func (s *Scheduler) nominalFire(now time.Time) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(), s.fireHour, s.fireMinute, 0, 0, time.UTC)
	if fire.After(now) {
		fire = fire.AddDate(0, 0, -1)
	}
	return fire
}

func parseWallTime(at string) (hour, minute int, err error) {
	parts := strings.SplitN(at, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid FETCH_AT %q: want HH:MM", at)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid FETCH_AT hour in %q", at)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid FETCH_AT minute in %q", at)
	}
	return hour, minute, nil
}
