package invoiceRepo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"consultbook/models"
	"consultbook/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupTestRepo(t *testing.T) *MongoInvoiceRepo {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URL")
	if uri == "" {
		t.Skip("MONGO_TEST_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := client.Database("consultbook_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	repo := NewMongoInvoiceRepo(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return repo
}

func TestFormatInvoiceNumber(t *testing.T) {
	at := time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC)
	if got := FormatInvoiceNumber(at, 42); got != "INV-202503-00042" {
		t.Errorf("got %s", got)
	}
	if got := CreditNoteNumber("INV-202503-00042"); got != "CN-INV-202503-00042" {
		t.Errorf("got %s", got)
	}
}

func TestInvoiceNumbersAreSequentialPerMonth(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	march := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

	for i, want := range []string{"INV-202503-00001", "INV-202503-00002"} {
		got, err := repo.NextInvoiceNumber(ctx, march)
		if err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
		if got != want {
			t.Errorf("allocation %d = %s, want %s", i, got, want)
		}
	}
	april, err := repo.NextInvoiceNumber(ctx, march.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("allocate april: %v", err)
	}
	if april != "INV-202504-00001" {
		t.Errorf("april = %s", april)
	}
}

func TestSingleActiveInvoicePerAppointment(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mk := func(number string) *models.Invoice {
		return &models.Invoice{
			ID:            uuid.NewString(),
			AppointmentID: "appt-1",
			Amount:        95,
			Status:        models.InvoicePending,
			InvoiceNumber: number,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	first := mk("INV-203001-00001")
	if err := repo.Insert(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.Insert(ctx, mk("INV-203001-00002")); !errors.Is(err, utils.ErrDuplicateInvoice) {
		t.Fatalf("expected DuplicateInvoice, got %v", err)
	}

	if err := repo.Deactivate(ctx, first.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := repo.Deactivate(ctx, first.ID); !errors.Is(err, utils.ErrInvoiceSuperseded) {
		t.Fatalf("expected InvoiceSuperseded, got %v", err)
	}
	if err := repo.Insert(ctx, mk("INV-203001-00003")); err != nil {
		t.Fatalf("insert successor: %v", err)
	}

	history, err := repo.ListByAppointment(ctx, "appt-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].IsActive || !history[1].IsActive {
		t.Fatalf("unexpected history %+v", history)
	}
	if !history[0].UpdatedAt.Equal(first.UpdatedAt.Truncate(time.Millisecond)) || history[0].Status != models.InvoicePending {
		t.Errorf("deactivation touched more than isActive: %+v", history[0])
	}
}
