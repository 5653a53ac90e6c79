package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	JobDigest = "moderation-digest"
	JobSweep  = "orphan-sweep"
)

// Maintenance is the work the scheduler runs on behalf of the moderation
// service.
type Maintenance interface {
	DigestPending(ctx context.Context) (int, error)
	SweepOrphanUploads(ctx context.Context) (int, error)
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) (int, error)
}

// Scheduler runs the periodic maintenance jobs
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]job
	entryMap map[string]cron.EntryID
	active   map[string]bool
	activeMu sync.Mutex
	log      logrus.FieldLogger
	timeout  time.Duration
	mu       sync.RWMutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewScheduler creates a new scheduler. An empty schedule disables that job.
func NewScheduler(m Maintenance, digestSchedule, sweepSchedule string, log logrus.FieldLogger) *Scheduler {
	s := &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		jobs:     make(map[string]job),
		entryMap: make(map[string]cron.EntryID),
		active:   make(map[string]bool),
		log:      log.WithField("component", "scheduler"),
		timeout:  10 * time.Minute,
	}
	s.jobs[JobDigest] = job{name: JobDigest, schedule: digestSchedule, run: m.DigestPending}
	s.jobs[JobSweep] = job{name: JobSweep, schedule: sweepSchedule, run: m.SweepOrphanUploads}
	return s
}

// Start schedules every configured job and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, name := range s.names() {
		if err := s.scheduleJob(s.jobs[name]); err != nil {
			s.cancel()
			for _, id := range s.entryMap {
				s.cron.Remove(id)
			}
			clear(s.entryMap)
			return err
		}
	}

	s.cron.Start()
	s.running = true

	s.log.WithField("jobs", len(s.entryMap)).Info("scheduler started")
	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	ctx := s.cron.Stop()
	s.mu.Unlock()

	// Running jobs see the cancelled context and finish on their own.
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// Trigger runs a job immediately and returns the number of items it handled.
func (s *Scheduler) Trigger(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("unknown job %q", name)
	}
	return s.execute(ctx, j)
}

// NextRun returns the next run time for a job
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entryID, ok := s.entryMap[name]; ok {
		entry := s.cron.Entry(entryID)
		if !entry.Next.IsZero() {
			return &entry.Next
		}
	}
	return nil
}

// ScheduledJobs returns the names of the scheduled jobs
func (s *Scheduler) ScheduledJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entryMap))
	for id := range s.entryMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) names() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) scheduleJob(j job) error {
	if strings.TrimSpace(j.schedule) == "" {
		return nil
	}

	schedule := NormalizeSchedule(j.schedule)
	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
		s.execute(ctx, j)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression '%s' for %s: %w", j.schedule, j.name, err)
	}

	s.entryMap[j.name] = entryID
	return nil
}

// execute skips a job that is still running from a previous tick.
func (s *Scheduler) execute(ctx context.Context, j job) (int, error) {
	s.activeMu.Lock()
	if s.active[j.name] {
		s.activeMu.Unlock()
		s.log.WithField("job", j.name).Info("job is already running, skipping")
		return 0, nil
	}
	s.active[j.name] = true
	s.activeMu.Unlock()

	defer func() {
		s.activeMu.Lock()
		delete(s.active, j.name)
		s.activeMu.Unlock()
	}()

	start := time.Now()
	n, err := j.run(ctx)
	entry := s.log.WithFields(logrus.Fields{
		"job":      j.name,
		"items":    n,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Error("job failed")
		return n, err
	}
	entry.Debug("job finished")
	return n, nil
}

// NormalizeSchedule expands the @ shortcuts and adds a seconds field to
// five-field expressions.
func NormalizeSchedule(schedule string) string {
	schedule = strings.TrimSpace(schedule)
	switch schedule {
	case "@hourly":
		return "0 0 * * * *"
	case "@daily":
		return "0 0 0 * * *"
	case "@weekly":
		return "0 0 0 * * 0"
	case "@monthly":
		return "0 0 0 1 * *"
	}

	if len(strings.Fields(schedule)) == 5 {
		return "0 " + schedule
	}
	return schedule
}
