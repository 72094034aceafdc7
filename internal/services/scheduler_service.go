package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/yukikurage/mayau-app/internal/realtime"
	"github.com/yukikurage/mayau-app/internal/repository"
)

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)
	return s.cron.AddFunc(spec, job)
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// OverdueSweeper announces tasks whose deadline has passed while they are
// still unfinished. Each task is announced once per deadline.
type OverdueSweeper struct {
	taskRepo  repository.TaskRepository
	publisher realtime.Publisher

	mu       sync.Mutex
	notified map[int64]time.Time
}

func NewOverdueSweeper(taskRepo repository.TaskRepository, publisher realtime.Publisher) *OverdueSweeper {
	return &OverdueSweeper{
		taskRepo:  taskRepo,
		publisher: publisher,
		notified:  make(map[int64]time.Time),
	}
}

// Sweep publishes task.overdue for newly overdue tasks and returns how many it announced.
func (s *OverdueSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	tasks, err := s.taskRepo.ListOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue tasks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]time.Time, len(tasks))
	announced := 0
	for _, task := range tasks {
		deadline := *task.Deadline
		seen[task.ID] = deadline

		if prev, ok := s.notified[task.ID]; ok && prev.Equal(deadline) {
			continue
		}
		publish(ctx, s.publisher, realtime.WorkspaceTasksChannel(task.WorkspaceID), realtime.KindTaskOverdue, task)
		announced++
	}
	// Tasks that were completed, rescheduled or deleted drop out, so a new
	// deadline that passes is announced again.
	s.notified = seen

	return announced, nil
}

// Job adapts Sweep for the scheduler.
func (s *OverdueSweeper) Job(timeout time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		n, err := s.Sweep(ctx, time.Now())
		if err != nil {
			slog.ErrorContext(ctx, "overdue sweep failed", "error", err)
			return
		}
		if n > 0 {
			slog.InfoContext(ctx, "overdue tasks announced", "count", n)
		}
	}
}
