package schedulerRepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"consultbook/models"
	"consultbook/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// setupTestRepo connects to the replica set named by MONGO_TEST_URL and
// returns a repository on a throwaway database.
func setupTestRepo(t *testing.T) *MongoSchedulerRepo {
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

	repo := NewMongoSchedulerRepo(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return repo
}

func newAppointment(date, timeslot string) *models.Appointment {
	now := time.Now().UTC()
	return &models.Appointment{
		ID:        uuid.NewString(),
		UserID:    "user-" + uuid.NewString()[:6],
		Date:      date,
		Timeslot:  timeslot,
		Type:      models.AppointmentInitial,
		Status:    models.AppointmentPending,
		SlotKey:   models.SlotKey(date, timeslot),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestConcurrentInsertsReserveSlotOnce(t *testing.T) {
	repo := setupTestRepo(t)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.InsertAppointment(context.Background(), newAppointment("2030-01-15", "10:00"))
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, utils.ErrSlotConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", workers-1, ok, conflicts)
	}
}

func TestStatusChangeReleasesAndReclaimsSlot(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first := newAppointment("2030-02-01", "09:00")
	if err := repo.InsertAppointment(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}

	cancelled, err := repo.UpdateAppointmentStatus(ctx, first.ID, models.AppointmentPending, StatusChange{
		Status: models.AppointmentCancelled,
		At:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.SlotKey != "" {
		t.Errorf("cancelled appointment still holds %q", cancelled.SlotKey)
	}

	second := newAppointment("2030-02-01", "09:00")
	if err := repo.InsertAppointment(ctx, second); err != nil {
		t.Fatalf("slot should be free after cancel: %v", err)
	}

	// A stale compare-and-set loses.
	_, err = repo.UpdateAppointmentStatus(ctx, first.ID, models.AppointmentPending, StatusChange{
		Status: models.AppointmentConfirmed,
		At:     time.Now().UTC(),
	})
	if !errors.Is(err, utils.ErrIllegalTransition) {
		t.Errorf("expected IllegalTransition, got %v", err)
	}
}

func TestMoveIntoHeldSlotConflicts(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	holder := newAppointment("2030-03-01", "11:00")
	mover := newAppointment("2030-03-01", "12:00")
	for _, a := range []*models.Appointment{holder, mover} {
		if err := repo.InsertAppointment(ctx, a); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	_, err := repo.UpdateAppointmentStatus(ctx, mover.ID, models.AppointmentPending, StatusChange{
		Status:   models.AppointmentConfirmed,
		Date:     "2030-03-01",
		Timeslot: "11:00",
		At:       time.Now().UTC(),
	})
	if !errors.Is(err, utils.ErrSlotConflict) {
		t.Fatalf("expected SlotConflict, got %v", err)
	}

	moved, err := repo.UpdateAppointmentStatus(ctx, mover.ID, models.AppointmentPending, StatusChange{
		Status:   models.AppointmentConfirmed,
		Date:     "2030-03-02",
		Timeslot: "11:00",
		At:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if want := models.SlotKey("2030-03-02", "11:00"); moved.SlotKey != want {
		t.Errorf("slotKey = %q, want %q", moved.SlotKey, want)
	}
}

func TestRemoveMissingBlockedSlot(t *testing.T) {
	repo := setupTestRepo(t)
	err := repo.RemoveBlockedSlot(context.Background(), fmt.Sprintf("missing-%d", time.Now().UnixNano()))
	if !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}
