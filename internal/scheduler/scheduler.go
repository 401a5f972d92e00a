package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	reportTimeout = 2 * time.Minute
	sweepSchedule = "@every 1m"
)

// ReportRunner produces the daily reports.
type ReportRunner interface {
	RunDaily(ctx context.Context) error
}

// Sweeper unmounts views nobody has read recently.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron           *cron.Cron
	reportSchedule string
	reports        ReportRunner
	views          Sweeper
	logger         *zap.Logger
}

// NewScheduler creates a new scheduler instance. Schedules are read in loc.
// A nil reports or views skips that job.
func NewScheduler(reportSchedule string, loc *time.Location, reports ReportRunner, views Sweeper, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:           cron.New(cron.WithLocation(loc)),
		reportSchedule: reportSchedule,
		reports:        reports,
		views:          views,
		logger:         logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("report_schedule", s.reportSchedule))

	if s.reports != nil {
		if _, err := s.cron.AddFunc(s.reportSchedule, s.sendDailyReports); err != nil {
			return fmt.Errorf("schedule daily report %q: %w", s.reportSchedule, err)
		}
	}
	if s.views != nil {
		if _, err := s.cron.AddFunc(sweepSchedule, s.sweepViews); err != nil {
			return fmt.Errorf("schedule view sweep: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendDailyReports() {
	s.logger.Info("generating daily reports")
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if err := s.reports.RunDaily(ctx); err != nil {
		s.logger.Error("daily reports finished with errors", zap.Error(err))
		return
	}
	s.logger.Info("daily reports sent successfully")
}

func (s *Scheduler) sweepViews() {
	if n := s.views.Sweep(time.Now()); n > 0 {
		s.logger.Info("unmounted idle views", zap.Int("count", n))
	}
}
