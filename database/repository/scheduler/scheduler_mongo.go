package schedulerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"consultbook/database"
	"consultbook/models"
	"consultbook/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSchedulerRepo implements SchedulerRepository using MongoDB.
type MongoSchedulerRepo struct {
	appointmentColl *mongo.Collection
	blockedColl     *mongo.Collection
}

// NewMongoSchedulerRepo constructs a new instance of MongoSchedulerRepo.
func NewMongoSchedulerRepo(db *mongo.Database) *MongoSchedulerRepo {
	return &MongoSchedulerRepo{
		appointmentColl: db.Collection("appointments"),
		blockedColl:     db.Collection("blocked_slots"),
	}
}

// newContext bounds a single repository call.
func newContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 5*time.Second)
}

func (repo *MongoSchedulerRepo) WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	return database.RunInTransaction(ctx, repo.appointmentColl.Database().Client(), fn)
}

// InsertAppointment inserts a new appointment. A duplicate slotKey means another
// appointment already holds the slot.
func (repo *MongoSchedulerRepo) InsertAppointment(ctx context.Context, appt *models.Appointment) error {
	ctx, cancel := newContext(ctx)
	defer cancel()

	if _, err := repo.appointmentColl.InsertOne(ctx, appt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewEngineError(utils.ErrSlotConflict, "slot %s %s is already reserved", appt.Date, appt.Timeslot)
		}
		return database.ClassifyError("error creating appointment", err)
	}
	return nil
}

// GetAppointment retrieves an appointment by ID.
func (repo *MongoSchedulerRepo) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	var appt models.Appointment
	if err := repo.appointmentColl.FindOne(ctx, bson.M{"id": id}).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewEngineError(utils.ErrNotFound, "appointment %s not found", id)
		}
		return nil, database.ClassifyError(fmt.Sprintf("error fetching appointment %s", id), err)
	}
	return &appt, nil
}

// ListAppointments returns appointments ordered by session date and time.
func (repo *MongoSchedulerRepo) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.Date != "" {
		query["date"] = filter.Date
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "timeslot", Value: 1}})
	return repo.findAppointments(ctx, query, opts)
}

// FindActiveInSlot returns pending or confirmed appointments for a slot.
func (repo *MongoSchedulerRepo) FindActiveInSlot(ctx context.Context, date, timeslot string) ([]models.Appointment, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	filter := bson.M{
		"date":     date,
		"timeslot": timeslot,
		"status":   bson.M{"$in": bson.A{models.AppointmentPending, models.AppointmentConfirmed}},
	}
	return repo.findAppointments(ctx, filter)
}

func (repo *MongoSchedulerRepo) findAppointments(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Appointment, error) {
	cursor, err := repo.appointmentColl.Find(ctx, filter, opts...)
	if err != nil {
		return nil, database.ClassifyError("error finding appointments", err)
	}
	defer cursor.Close(ctx)

	appointments := []models.Appointment{}
	for cursor.Next(ctx) {
		var a models.Appointment
		if err := cursor.Decode(&a); err != nil {
			return nil, fmt.Errorf("error decoding appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	if err := cursor.Err(); err != nil {
		return nil, database.ClassifyError("cursor error", err)
	}
	return appointments, nil
}

// UpdateAppointmentStatus is a compare-and-set on the previous status. The
// slotKey follows the new status so the unique index only sees slot holders.
func (repo *MongoSchedulerRepo) UpdateAppointmentStatus(ctx context.Context, id string, from models.AppointmentStatus, change StatusChange) (*models.Appointment, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	set := bson.M{
		"status":    change.Status,
		"updatedAt": change.At,
	}
	if change.Date != "" {
		set["date"] = change.Date
	}
	if change.Timeslot != "" {
		set["timeslot"] = change.Timeslot
	}
	if change.LateReschedule != nil {
		set["lateReschedule"] = *change.LateReschedule
	}
	// Holding statuses derive slotKey from the post-update date/timeslot, which
	// needs a second pipeline stage; releasing statuses drop it.
	var updateDoc interface{}
	if change.Status.HoldsSlot() {
		updateDoc = mongo.Pipeline{
			{{Key: "$set", Value: set}},
			{{Key: "$set", Value: bson.M{"slotKey": bson.M{"$concat": bson.A{"$date", "#", "$timeslot"}}}}},
		}
	} else {
		updateDoc = bson.M{"$set": set, "$unset": bson.M{"slotKey": ""}}
	}

	filter := bson.M{"id": id, "status": from}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Appointment
	err := repo.appointmentColl.FindOneAndUpdate(ctx, filter, updateDoc, opts).Decode(&updated)
	switch {
	case err == nil:
		return &updated, nil
	case mongo.IsDuplicateKeyError(err):
		return nil, utils.NewEngineError(utils.ErrSlotConflict, "slot is already reserved")
	case errors.Is(err, mongo.ErrNoDocuments):
		// Either the appointment is missing or its status moved underneath us.
		if _, getErr := repo.GetAppointment(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, utils.NewEngineError(utils.ErrIllegalTransition, "appointment %s is no longer %s", id, from)
	default:
		return nil, database.ClassifyError(fmt.Sprintf("error updating appointment %s", id), err)
	}
}
