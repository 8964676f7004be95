package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reminders stamps and announces interviews that start soon.
type Reminders interface {
	SendReminders(ctx context.Context, lead time.Duration) (int, error)
}

type ReminderConfig struct {
	Enabled  bool
	Schedule string        // cron spec, e.g. "*/5 * * * *"
	LeadTime time.Duration // how far ahead an interview is considered due
}

// ReminderJob runs SendReminders on a cron schedule.
type ReminderJob struct {
	reminders Reminders
	config    ReminderConfig
	cron      *cron.Cron
	logger    *zap.Logger
	timeout   time.Duration
}

func NewReminderJob(reminders Reminders, config ReminderConfig, logger *zap.Logger) *ReminderJob {
	return &ReminderJob{
		reminders: reminders,
		config:    config,
		cron:      cron.New(),
		logger:    logger.Named("reminders"),
		timeout:   time.Minute,
	}
}

// Start registers the schedule and starts the scheduler. A disabled job is a no-op.
func (j *ReminderJob) Start() error {
	if !j.config.Enabled {
		j.logger.Info("interview reminders disabled")
		return nil
	}
	if _, err := j.cron.AddFunc(j.config.Schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			j.logger.Error("reminder run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule reminder job: %w", err)
	}

	j.cron.Start()
	j.logger.Info("interview reminders started",
		zap.String("schedule", j.config.Schedule),
		zap.Duration("lead_time", j.config.LeadTime))
	return nil
}

// Stop halts the scheduler and waits for a running pass to finish.
func (j *ReminderJob) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce performs a single reminder pass.
func (j *ReminderJob) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	sent, err := j.reminders.SendReminders(ctx, j.config.LeadTime)
	if err != nil {
		return 0, err
	}
	if sent > 0 {
		j.logger.Info("reminders sent", zap.Int("count", sent))
	}
	return sent, nil
}
