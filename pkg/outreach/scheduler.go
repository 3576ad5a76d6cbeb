package outreach

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tinyland-inc/teammate/pkg/logger"
)

// Job is a named task fired once at start and then on its schedule.
type Job struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on independent timers. A slow job delays only its own
// next run; it never blocks the others.
type Scheduler struct {
	jobs   []Job
	now    func() time.Time
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{now: time.Now}
}

// Add registers a job. Jobs added after Start are not picked up.
func (s *Scheduler) Add(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("scheduler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, job := range s.jobs {
		logger.InfoCF("scheduler", "Scheduling job", map[string]any{
			"job":      job.Name,
			"schedule": job.Schedule.String(),
		})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(runCtx, job)
		}()
	}
	return nil
}

// Stop cancels all jobs and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	scheduled := s.now()
	for {
		s.fire(ctx, job)

		var err error
		scheduled, err = nextRun(job.Schedule, scheduled, s.now())
		if err != nil {
			logger.ErrorCF("scheduler", "Cannot compute next run, stopping job", map[string]any{
				"job":   job.Name,
				"error": err,
			})
			return
		}

		timer := time.NewTimer(time.Until(scheduled))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// nextRun returns the first slot of sched after prev that is still in the
// future at now. Slots missed while a run overran are skipped, so runs stay on
// the grid set by the first run instead of drifting by each run's duration.
func nextRun(sched Schedule, prev, now time.Time) (time.Time, error) {
	next := prev
	for {
		var err error
		next, err = sched.Next(next)
		if err != nil {
			return time.Time{}, err
		}
		if next.After(now) {
			return next, nil
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("scheduler", "Job panicked", map[string]any{
				"job":   job.Name,
				"panic": fmt.Sprint(r),
			})
		}
	}()

	if err := job.Run(ctx); err != nil {
		logger.ErrorCF("scheduler", "Job failed", map[string]any{
			"job":       job.Name,
			"operation": job.Name,
			"error":     err,
		})
	}
}

// Jobs builds the channel and DM outreach jobs for o.
func (o *Outreach) Jobs(channelSchedule, directSchedule Schedule) []Job {
	return []Job{
		{
			Name:     "channel_outreach",
			Schedule: channelSchedule,
			Run: func(ctx context.Context) error {
				_, err := o.ChannelTick(ctx)
				return err
			},
		},
		{
			Name:     "dm_outreach",
			Schedule: directSchedule,
			Run: func(ctx context.Context) error {
				_, err := o.DirectTick(ctx)
				return err
			},
		},
	}
}
