// Package scheduler runs harvest tasks on cron schedules for watch mode.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrTaskNotFound is returned for an unknown task ID.
	ErrTaskNotFound = errors.New("scheduler: task not found")

	// ErrTaskRunning is returned when a task is triggered while it runs.
	ErrTaskRunning = errors.New("scheduler: task already running")
)

// TaskFunc is the function signature for scheduled tasks.
type TaskFunc func(ctx context.Context) error

// TaskConfig contains configuration for a scheduled task.
type TaskConfig struct {
	ID          string
	Name        string
	Description string
	Cron        string // "0 3 * * *" for 03:00 daily
	Func        TaskFunc
	RunOnStart  bool
}

// TaskInfo describes a registered task.
type TaskInfo struct {
	ID       string
	Name     string
	Cron     string
	LastRun  *time.Time
	LastErr  error
	NextRun  *time.Time
	Running  bool
	RunCount int
}

type taskEntry struct {
	config   TaskConfig
	job      gocron.Job
	lastRun  *time.Time
	lastErr  error
	running  bool
	runCount int
}

// Scheduler manages scheduled tasks. A task never overlaps itself: a tick
// that arrives while the previous run is still going is skipped.
type Scheduler struct {
	gocron gocron.Scheduler
	logger zerolog.Logger
	tasks  map[string]*taskEntry
	mu     sync.RWMutex
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler. Tasks receive a context derived from ctx
// that is cancelled by Stop.
func New(ctx context.Context, logger zerolog.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		gocron: gs,
		logger: logger.With().Str("component", "scheduler").Logger(),
		tasks:  make(map[string]*taskEntry),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// RegisterTask registers a new scheduled task.
func (s *Scheduler) RegisterTask(config TaskConfig) error {
	if config.Func == nil {
		return fmt.Errorf("task %q has no function", config.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[config.ID]; exists {
		return fmt.Errorf("task with ID %q already registered", config.ID)
	}

	job, err := s.gocron.NewJob(
		gocron.CronJob(config.Cron, false),
		gocron.NewTask(func() {
			s.executeTask(config.ID)
		}),
		gocron.WithName(config.Name),
		gocron.WithTags(config.ID),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create job for task %q: %w", config.ID, err)
	}

	s.tasks[config.ID] = &taskEntry{
		config: config,
		job:    job,
	}

	s.logger.Info().
		Str("id", config.ID).
		Str("name", config.Name).
		Str("cron", config.Cron).
		Bool("runOnStart", config.RunOnStart).
		Msg("Registered task")

	return nil
}

// executeTask runs a task unless it is already running.
func (s *Scheduler) executeTask(taskID string) {
	s.mu.Lock()
	entry, exists := s.tasks[taskID]
	if !exists || entry.running {
		s.mu.Unlock()
		if exists {
			s.logger.Warn().Str("id", taskID).Msg("Task still running, skipping")
		}
		return
	}
	entry.running = true
	s.mu.Unlock()

	s.runEntry(entry)
}

func (s *Scheduler) runEntry(entry *taskEntry) {
	startTime := time.Now()
	s.logger.Info().
		Str("id", entry.config.ID).
		Str("name", entry.config.Name).
		Msg("Starting task")

	err := entry.config.Func(s.ctx)

	s.mu.Lock()
	entry.running = false
	entry.lastRun = &startTime
	entry.lastErr = err
	entry.runCount++
	s.mu.Unlock()

	duration := time.Since(startTime)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("id", entry.config.ID).
			Dur("duration", duration).
			Msg("Task failed")
		return
	}
	s.logger.Info().
		Str("id", entry.config.ID).
		Dur("duration", duration).
		Msg("Task completed")
}

// Start starts the scheduler and runs any tasks configured with RunOnStart.
func (s *Scheduler) Start() {
	s.logger.Info().Msg("Starting scheduler")
	s.gocron.Start()

	s.mu.RLock()
	var startup []string
	for id, entry := range s.tasks {
		if entry.config.RunOnStart {
			startup = append(startup, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range startup {
		s.spawn(id)
	}
}

func (s *Scheduler) spawn(taskID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.executeTask(taskID)
	}()
}

// Stop cancels running tasks and waits for them and the gocron scheduler
// to finish.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")
	s.cancel()
	err := s.gocron.Shutdown()
	s.wg.Wait()
	return err
}

// RunNow triggers a task immediately in the background.
func (s *Scheduler) RunNow(taskID string) error {
	s.mu.Lock()
	entry, exists := s.tasks[taskID]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
	}
	if entry.running {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrTaskRunning, taskID)
	}
	entry.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runEntry(entry)
	}()
	return nil
}

// ListTasks returns information about all registered tasks, ordered by ID.
func (s *Scheduler) ListTasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]TaskInfo, 0, len(s.tasks))
	for _, entry := range s.tasks {
		info := TaskInfo{
			ID:       entry.config.ID,
			Name:     entry.config.Name,
			Cron:     entry.config.Cron,
			LastRun:  entry.lastRun,
			LastErr:  entry.lastErr,
			Running:  entry.running,
			RunCount: entry.runCount,
		}
		if next, err := entry.job.NextRun(); err == nil && !next.IsZero() {
			info.NextRun = &next
		}
		tasks = append(tasks, info)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}
