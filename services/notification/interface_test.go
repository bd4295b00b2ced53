package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"consultbook/models"
	"consultbook/utils"

	"go.uber.org/zap"
)

type recordingQueue struct {
	entries []*models.NotificationEntry
	err     error
	ctxErr  error
}

func (q *recordingQueue) Enqueue(ctx context.Context, entry *models.NotificationEntry) error {
	q.ctxErr = ctx.Err()
	if q.err != nil {
		return q.err
	}
	q.entries = append(q.entries, entry)
	return nil
}

func TestEnqueueWritesPendingEntry(t *testing.T) {
	q := &recordingQueue{}
	svc, err := NewDefaultNotificationService(q, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.Clock = utils.FixedClock(now)

	// A cancelled request context must not drop the write.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Enqueue(ctx, "ana@example.com", models.NotifyInvoiceCreated, map[string]any{"invoiceNumber": "INV-202505-00001"})

	if len(q.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(q.entries))
	}
	e := q.entries[0]
	if e.Status != models.NotificationPending || e.Type != models.NotifyInvoiceCreated || !e.CreatedAt.Equal(now) || e.ID == "" {
		t.Errorf("unexpected entry %+v", e)
	}
	if q.ctxErr != nil {
		t.Errorf("queue saw cancelled context: %v", q.ctxErr)
	}
}

func TestEnqueueSwallowsErrors(t *testing.T) {
	q := &recordingQueue{err: errors.New("down")}
	svc, _ := NewDefaultNotificationService(q, nil)
	svc.Enqueue(context.Background(), "x@example.com", models.NotifyAppointmentConfirmed, nil)
	svc.Enqueue(context.Background(), "", models.NotifyAppointmentConfirmed, nil)
	if len(q.entries) != 0 {
		t.Errorf("no entries expected")
	}
}

func TestNewServiceRequiresQueue(t *testing.T) {
	if _, err := NewDefaultNotificationService(nil, nil); err == nil {
		t.Error("expected error for nil queue")
	}
}
