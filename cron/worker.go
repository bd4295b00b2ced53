package cron

import (
	"context"
	"fmt"
	"time"

	"consultbook/models"
	"consultbook/services/tasks"
	"consultbook/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ReminderSender delivers a due session reminder.
type ReminderSender interface {
	SendReminder(ctx context.Context, payload models.ReminderPayload) error
}

// RedisConnOpt points asynq at the task queue database.
func RedisConnOpt() asynq.RedisClientOpt {
	opts := utils.TaskQueueRedisOptions()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// InitReminderWorker starts the reminder worker in the background. The caller
// owns the returned server and shuts it down.
func InitReminderWorker(sender ReminderSender, logger *zap.Logger) *asynq.Server {
	srv := asynq.NewServer(
		RedisConnOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeAppointmentReminder, HandleReminderTask(sender, logger))

	go func() {
		logger.Info("Starting reminder worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Start(mux)
			if err == nil {
				return
			}
			logger.Warn("Reminder worker failed to start",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err))
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
		logger.Error("Reminder worker gave up; reminders will not be delivered")
	}()
	return srv
}

func HandleReminderTask(sender ReminderSender, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseReminderPayload(task)
		if err != nil {
			logger.Error("Dropping reminder task", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		logger.Info("Reminder due",
			zap.String("appointmentID", p.AppointmentID),
			zap.String("date", p.Date),
			zap.String("timeslot", p.Timeslot))

		if err := sender.SendReminder(ctx, p); err != nil {
			logger.Warn("Reminder failed, will retry", zap.String("appointmentID", p.AppointmentID), zap.Error(err))
			return err
		}
		return nil
	}
}
