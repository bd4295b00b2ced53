package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"consultbook/models"
	"consultbook/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type senderFunc func(ctx context.Context, p models.ReminderPayload) error

func (f senderFunc) SendReminder(ctx context.Context, p models.ReminderPayload) error { return f(ctx, p) }

func TestHandleReminderTaskDelivers(t *testing.T) {
	var got models.ReminderPayload
	h := HandleReminderTask(senderFunc(func(_ context.Context, p models.ReminderPayload) error {
		got = p
		return nil
	}), zap.NewNop())

	want := models.ReminderPayload{AppointmentID: "a1", Date: "2030-01-15", Timeslot: "10:00"}
	task, _, err := tasks.NewReminderTask(want, testFireAt)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}
	if got != want {
		t.Errorf("got %+v", got)
	}
}

func TestHandleReminderTaskSkipsRetryOnBadPayload(t *testing.T) {
	h := HandleReminderTask(senderFunc(func(context.Context, models.ReminderPayload) error {
		t.Fatal("sender must not be called")
		return nil
	}), zap.NewNop())
	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeAppointmentReminder, []byte("not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("expected SkipRetry, got %v", err)
	}
}

func TestHandleReminderTaskPropagatesFailures(t *testing.T) {
	boom := errors.New("storage down")
	h := HandleReminderTask(senderFunc(func(context.Context, models.ReminderPayload) error { return boom }), zap.NewNop())
	task, _, _ := tasks.NewReminderTask(models.ReminderPayload{AppointmentID: "a1"}, testFireAt)
	if err := h.ProcessTask(context.Background(), task); !errors.Is(err, boom) {
		t.Errorf("expected sender error, got %v", err)
	}
}

var testFireAt = time.Date(2030, time.January, 14, 10, 0, 0, 0, time.UTC)
