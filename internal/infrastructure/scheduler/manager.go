// Package scheduler runs the periodic user maintenance jobs using gocron v2.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/cityinfra/trafficcontrol/internal/infrastructure/cache"
	"github.com/cityinfra/trafficcontrol/internal/shared/biztime"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

const (
	JobInactivityNotify       = "inactivity-notify"
	JobDeactivatedUsersReport = "deactivated-users-report"
)

// BatchJob processes one run and returns the number of items handled.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// BatchJobFunc adapts a function to BatchJob.
type BatchJobFunc func(ctx context.Context) (int, error)

func (f BatchJobFunc) Execute(ctx context.Context) (int, error) { return f(ctx) }

// Locker guards a job against concurrent runs in other processes.
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (*cache.Lease, error)
}

type SchedulerManager struct {
	scheduler gocron.Scheduler
	locker    Locker
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager evaluates cron expressions in the business timezone.
func NewSchedulerManager(locker Locker, log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		locker:    locker,
		logger:    log,
	}, nil
}

// RegisterCronJob adds a singleton job on a five-field cron expression.
func (m *SchedulerManager) RegisterCronJob(name, crontab string, timeout time.Duration, job BatchJob) error {
	_, err := m.scheduler.NewJob(
		gocron.CronJob(crontab, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			m.run(ctx, name, timeout, job)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("users"),
		gocron.WithName(name),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered job", "name", name, "cron", crontab)
	return nil
}

// RegisterUserJobs registers the daily inactivity pass and the monthly
// deactivation report.
func (m *SchedulerManager) RegisterUserJobs(notifyCron, reportCron string, notify, report BatchJob) error {
	if err := m.RegisterCronJob(JobInactivityNotify, notifyCron, time.Hour, notify); err != nil {
		return err
	}
	return m.RegisterCronJob(JobDeactivatedUsersReport, reportCron, 30*time.Minute, report)
}

func (m *SchedulerManager) run(ctx context.Context, name string, ttl time.Duration, job BatchJob) {
	if m.locker != nil {
		lease, err := m.locker.TryAcquire(ctx, name, ttl)
		if errors.Is(err, cache.ErrLockHeld) {
			m.logger.Infow("job already running elsewhere, skipping", "name", name)
			return
		}
		if err != nil {
			m.logger.Errorw("failed to acquire job lock", "name", name, "error", err)
			return
		}
		defer func() {
			if err := lease.Release(context.Background()); err != nil {
				m.logger.Warnw("failed to release job lock", "name", name, "error", err)
			}
		}()
	}

	start := time.Now()
	n, err := job.Execute(ctx)
	if err != nil {
		m.logger.Errorw("job failed", "name", name, "error", err, "duration", time.Since(start))
		return
	}
	m.logger.Infow("job completed", "name", name, "count", n, "duration", time.Since(start))
}

// RunNow executes a registered job body outside the schedule.
func (m *SchedulerManager) RunNow(ctx context.Context, name string, job BatchJob) {
	m.run(ctx, name, time.Hour, job)
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop waits for running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	err := m.scheduler.Shutdown()
	m.started = false
	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
