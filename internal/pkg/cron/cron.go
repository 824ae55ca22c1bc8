package cron

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a named background task run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) error
}

type jobState struct {
	Job

	mu        sync.Mutex
	running   bool
	lastRunAt *time.Time
	lastErr   string
}

// Snapshot is the serializable state of one job, reported on the health
// endpoint.
type Snapshot struct {
	Name      string     `json:"name"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

// Scheduler runs a small fixed set of maintenance jobs. Jobs are registered
// before Start and run until the context is cancelled; an overrunning job
// skips its next tick instead of stacking.
type Scheduler struct {
	mu     sync.RWMutex
	jobs   map[string]*jobState
	logger *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]*jobState),
		logger: logger,
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &jobState{Job: job}
}

// Start launches every registered job in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, js := range s.jobs {
		go s.runLoop(ctx, js)
	}
}

func (s *Scheduler) runLoop(ctx context.Context, js *jobState) {
	ticker := time.NewTicker(js.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, js)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, js *jobState) {
	js.mu.Lock()
	if js.running {
		js.mu.Unlock()
		return
	}
	js.running = true
	js.mu.Unlock()

	now := time.Now()
	err := js.Fn(ctx)

	js.mu.Lock()
	js.running = false
	js.lastRunAt = &now
	js.lastErr = ""
	if err != nil {
		js.lastErr = err.Error()
	}
	js.mu.Unlock()

	if err != nil {
		s.logger.Warn("scheduled job failed", zap.String("job", js.Name), zap.Error(err))
	}
}

// Run triggers a job by name immediately, off the caller's goroutine.
func (s *Scheduler) Run(ctx context.Context, name string) {
	s.mu.RLock()
	js, ok := s.jobs[name]
	s.mu.RUnlock()
	if ok {
		go s.execute(ctx, js)
	}
}

// Jobs reports the current state of every registered job.
func (s *Scheduler) Jobs() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, 0, len(s.jobs))
	for _, js := range s.jobs {
		js.mu.Lock()
		out = append(out, Snapshot{
			Name:      js.Name,
			LastRunAt: js.lastRunAt,
			LastError: js.lastErr,
		})
		js.mu.Unlock()
	}
	return out
}
