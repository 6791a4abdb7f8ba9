package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSchedule fires at 09:00 on the first day of every month.
const DefaultSchedule = "0 9 1 * *"

// Runner is what the scheduler triggers.
type Runner interface {
	Run(ctx context.Context) (Summary, error)
}

// Scheduler triggers monthly runs on a cron schedule. The summary goes to the log.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	runner   Runner
	logger   *logrus.Entry
}

// NewScheduler parses spec (standard five-field cron syntax) and registers the run.
func NewScheduler(spec string, runner Runner, logger *logrus.Entry) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse batch schedule %q: %w", spec, err)
	}
	s := &Scheduler{
		cron:     cron.New(),
		schedule: schedule,
		runner:   runner,
		logger:   logger.WithField("schedule", spec),
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.trigger))
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("next", s.Next(time.Now())).Info("batch scheduler started")
}

// Stop stops scheduling and waits for a running trigger to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("batch scheduler stop timed out with a run in progress")
	}
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

func (s *Scheduler) trigger() {
	summary, err := s.runner.Run(context.Background())
	if err != nil {
		s.logger.WithError(err).Error("scheduled batch run failed")
		return
	}
	if summary.AlreadyRunning {
		s.logger.WithError(ErrAlreadyRunning).Warn("scheduled batch run skipped")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"cycle":     summary.Cycle,
		"processed": summary.Processed,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	}).Info("scheduled batch run completed")
}
