package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/taskflow/taskflow-api/internal/config"
	"github.com/taskflow/taskflow-api/internal/services"
)

// Scheduler runs the periodic sweeps: overdue and due-soon reminders plus
// notification retention cleanup.
type Scheduler struct {
	cron         *cron.Cron
	automation   *services.AutomationService
	notification *services.NotificationService
	logger       *slog.Logger
}

// New creates a Scheduler with its jobs registered but not yet running.
func New(cfg *config.Config, automation *services.AutomationService, notification *services.NotificationService, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:         cron.New(),
		automation:   automation,
		notification: notification,
		logger:       logger.With("module", "scheduler"),
	}

	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"overdue_sweep", cfg.OverdueSweepSpec, s.runOverdueSweep},
		{"due_soon_sweep", cfg.DueSoonSweepSpec, s.runDueSoonSweep},
		{"retention_sweep", cfg.RetentionSweepSpec, s.runRetentionSweep},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			return nil, fmt.Errorf("failed to schedule %s (%q): %w", job.name, job.spec, err)
		}
	}

	return s, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runOverdueSweep() {
	if err := s.automation.SweepOverdueTasks(); err != nil {
		s.logger.Error("overdue sweep failed", "error", err)
	}
}

func (s *Scheduler) runDueSoonSweep() {
	if err := s.automation.SweepDueSoonTasks(); err != nil {
		s.logger.Error("due soon sweep failed", "error", err)
	}
}

func (s *Scheduler) runRetentionSweep() {
	deleted, err := s.notification.SweepExpired()
	if err != nil {
		s.logger.Error("retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("expired notifications removed", "count", deleted)
	}
}
