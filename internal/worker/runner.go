package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a background job the runner schedules.
type Task interface {
	Name() string
	// Schedule is a cron spec, including @every forms.
	Schedule() string
	Timeout() time.Duration
	Run(ctx context.Context) error
}

// Runner executes registered tasks on their cron schedules. Shutdown waits
// for in-flight runs to finish.
type Runner struct {
	cron   *cron.Cron
	tasks  []Task
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewRunner creates an empty runner.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{
		cron:   cron.New(),
		logger: logger,
	}
}

// Register adds a task. Must be called before Start.
func (r *Runner) Register(task Task) {
	r.tasks = append(r.tasks, task)
}

// Start schedules every registered task and starts the cron loop. It does
// not block; the caller owns process lifecycle.
func (r *Runner) Start(ctx context.Context) error {
	for _, task := range r.tasks {
		task := task
		r.logger.Info("registering task",
			zap.String("task", task.Name()),
			zap.String("schedule", task.Schedule()))
		if _, err := r.cron.AddFunc(task.Schedule(), func() {
			r.executeTask(ctx, task)
		}); err != nil {
			return fmt.Errorf("schedule task %s: %w", task.Name(), err)
		}
	}
	r.cron.Start()
	return nil
}

func (r *Runner) executeTask(ctx context.Context, task Task) {
	r.wg.Add(1)
	defer r.wg.Done()

	taskCtx := ctx
	if task.Timeout() > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, task.Timeout())
		defer cancel()
	}

	start := time.Now()
	if err := task.Run(taskCtx); err != nil {
		r.logger.Error("task failed",
			zap.String("task", task.Name()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	r.logger.Debug("task finished",
		zap.String("task", task.Name()),
		zap.Duration("duration", time.Since(start)))
}

// Stop halts scheduling and waits for running tasks.
func (r *Runner) Stop() {
	stopCtx := r.cron.Stop()
	r.wg.Wait()
	<-stopCtx.Done()
}
