package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/errors"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/logger"
)

// Task is a named periodic job. Run receives the scheduler's context; a
// returned error is logged and the task keeps its schedule. Tasks must not
// panic their way out of the pool.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error

	// RunAtStart fires the task once immediately instead of waiting a
	// full interval for the first tick.
	RunAtStart bool
}

// Scheduler drives periodic tasks over a shared worker pool. Each task gets
// its own ticker goroutine; the task bodies execute on pool workers so the
// number of concurrent bodies stays bounded.
type Scheduler struct {
	pool   *WorkerPool
	logger logger.Logger

	mu      sync.Mutex
	tasks   []Task
	started bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func New(pool *WorkerPool, log logger.Logger) *Scheduler {
	return &Scheduler{
		pool:   pool,
		logger: log,
	}
}

// Add registers a task. Tasks added after Start are ignored.
func (s *Scheduler) Add(task Task) error {
	errFactory := errors.New()

	if task.Interval <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidInterval, "task interval must be positive")
	}
	if task.Run == nil {
		return errFactory.WithMessage(errors.ErrInvalidArgument, "task has no body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errFactory.WithMessage(errors.ErrOperationFailed, "scheduler already started")
	}
	s.tasks = append(s.tasks, task)

	return nil
}

// Start launches every registered task. It returns immediately; task bodies
// run until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runTask(ctx, task)
	}

	s.logger.Info().
		Int("tasks", len(s.tasks)).
		Msg("Scheduler started")
}

func (s *Scheduler) runTask(ctx context.Context, task Task) {
	defer s.wg.Done()

	if task.RunAtStart {
		s.dispatch(ctx, task)
	}

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx, task)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, task Task) {
	submitted := s.pool.TrySubmit(func() {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		if err := task.Run(ctx); err != nil {
			s.logger.Warn().
				Str("task", task.Name).
				Str("error_code", string(errors.CodeOf(err))).
				Err(err).
				Msg("Scheduled task failed")
			return
		}

		s.logger.Debug().
			Str("task", task.Name).
			Dur("elapsed", time.Since(start)).
			Msg("Scheduled task completed")
	})

	if !submitted {
		s.logger.Warn().
			Str("task", task.Name).
			Msg("Worker pool saturated, tick dropped")
	}
}

// Stop cancels the tickers and waits for in-flight task bodies to drain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.pool.Shutdown()

	s.logger.Debug().Msg("Scheduler stopped")
}
