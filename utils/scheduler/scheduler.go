// Package scheduler runs named periodic jobs until a context ends.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one scheduled job. Interval > 0 runs it on a ticker; otherwise
// it runs once after Delay.
type Task struct {
	Name     string
	Interval time.Duration
	Delay    time.Duration
	Run      func(ctx context.Context)
}

// Scheduler fans registered tasks out to goroutines. A panicking task is
// logged under its name and its ticker keeps going.
type Scheduler struct {
	logger *slog.Logger
	mu     sync.Mutex
	tasks  []*Task
	wg     sync.WaitGroup
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Every schedules fn to run immediately and then on every interval tick.
func (s *Scheduler) Every(interval time.Duration, name string, fn func(context.Context)) *Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, &Task{Name: name, Interval: interval, Run: fn})
	return s
}

// RunAfter schedules fn to run once after delay.
func (s *Scheduler) RunAfter(delay time.Duration, name string, fn func(context.Context)) *Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, &Task{Name: name, Delay: delay, Run: fn})
	return s
}

// Run starts every registered task and blocks until ctx is cancelled and
// all task goroutines have returned.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	tasks := make([]*Task, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "tasks", len(tasks))

	for _, task := range tasks {
		s.wg.Add(1)
		if task.Interval > 0 {
			go s.runPeriodic(ctx, task)
		} else {
			go s.runOnce(ctx, task)
		}
	}

	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// RunAsync starts all tasks without blocking.
func (s *Scheduler) RunAsync(ctx context.Context) {
	go s.Run(ctx)
}

// TaskCount reports how many tasks are registered.
func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Scheduler) runPeriodic(ctx context.Context, task *Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.safeRun(ctx, task)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.safeRun(ctx, task)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task *Task) {
	defer s.wg.Done()

	if task.Delay > 0 {
		timer := time.NewTimer(task.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
	s.safeRun(ctx, task)
}

func (s *Scheduler) safeRun(ctx context.Context, task *Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", "task", task.Name, "panic", r)
		}
	}()
	task.Run(ctx)
}
