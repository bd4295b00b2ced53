package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"consultbook/models"

	"github.com/hibiken/asynq"
)

const TypeAppointmentReminder = "appointment:reminder"

// reminderTaskID dedupes reminders for the same appointment and slot.
func reminderTaskID(p models.ReminderPayload) string {
	return fmt.Sprintf("reminder:%s:%s:%s", p.AppointmentID, p.Date, p.Timeslot)
}

func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeAppointmentReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID(reminderTaskID(payload)),
		asynq.MaxRetry(5),
		asynq.Retention(24 * time.Hour),
	}
	return task, opts, nil
}

func ParseReminderPayload(t *asynq.Task) (models.ReminderPayload, error) {
	var p models.ReminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid reminder payload: %w", err)
	}
	if p.AppointmentID == "" {
		return p, fmt.Errorf("invalid reminder payload: missing appointment id")
	}
	return p, nil
}

// Enqueuer is the subset of *asynq.Client used to schedule tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqReminderScheduler schedules session reminders on the task queue.
type AsynqReminderScheduler struct {
	Client Enqueuer
}

func (s *AsynqReminderScheduler) ScheduleReminder(ctx context.Context, appt models.Appointment, fireAt time.Time) error {
	task, opts, err := NewReminderTask(models.ReminderPayload{
		AppointmentID: appt.ID,
		Date:          appt.Date,
		Timeslot:      appt.Timeslot,
	}, fireAt)
	if err != nil {
		return err
	}
	if _, err := s.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue reminder for %s: %w", appt.ID, err)
	}
	return nil
}
