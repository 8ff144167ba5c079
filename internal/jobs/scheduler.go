// Package jobs runs the periodic maintenance work of the API on a gocron scheduler.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// JobFunc is one unit of scheduled work.
type JobFunc func(ctx context.Context) error

// JobInfo is a snapshot of a registered job.
type JobInfo struct {
	Name       string        `json:"name"`
	Interval   time.Duration `json:"interval"`
	LastRun    time.Time     `json:"lastRun"`
	RunCount   int           `json:"runCount"`
	ErrorCount int           `json:"errorCount"`
	LastError  string        `json:"lastError,omitempty"`
}

type job struct {
	info   JobInfo
	gocron gocron.Job
}

// Scheduler manages the scheduled jobs.
type Scheduler struct {
	gocron gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// New creates a stopped scheduler.
func New(logger zerolog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLogger(gocronLogger{log: logger}))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gocron: s,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		jobs:   make(map[string]*job),
	}, nil
}

// Every registers fn to run once per interval. A run still in progress delays the next one.
func (s *Scheduler) Every(name string, interval time.Duration, fn JobFunc) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	j := &job{info: JobInfo{Name: name, Interval: interval}}
	gj, err := s.gocron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.wrap(j, fn)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", name, err)
	}
	j.gocron = gj
	s.jobs[name] = j

	s.logger.Info().Str("job", name).Dur("interval", interval).Msg("Job registered")
	return nil
}

func (s *Scheduler) wrap(j *job, fn JobFunc) func() {
	return func() {
		start := time.Now()
		err := fn(s.ctx)

		s.mu.Lock()
		j.info.LastRun = start
		j.info.RunCount++
		if err != nil {
			j.info.ErrorCount++
			j.info.LastError = err.Error()
		} else {
			j.info.LastError = ""
		}
		s.mu.Unlock()

		if err != nil {
			s.logger.Error().Err(err).Str("job", j.info.Name).Msg("Job failed")
			return
		}
		s.logger.Debug().Str("job", j.info.Name).Dur("took", time.Since(start)).Msg("Job completed")
	}
}

// Start begins running the registered jobs.
func (s *Scheduler) Start() {
	s.gocron.Start()
	s.logger.Info().Int("jobs", len(s.Jobs())).Msg("Job scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.cancel()
	if err := s.gocron.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	s.logger.Info().Msg("Job scheduler stopped")
	return nil
}

// RunNow triggers a registered job outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	if err := j.gocron.RunNow(); err != nil {
		return fmt.Errorf("failed to trigger job %s: %w", name, err)
	}
	return nil
}

// Jobs returns a snapshot of the registered jobs ordered by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.info)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}
