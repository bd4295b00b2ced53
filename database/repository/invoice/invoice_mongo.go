package invoiceRepo

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

// activeFilter matches invoices that have not been superseded.
var activeFilter = bson.M{"$ne": false}

// MongoInvoiceRepo implements InvoiceRepository using MongoDB.
type MongoInvoiceRepo struct {
	invoiceColl *mongo.Collection
	counterColl *mongo.Collection
}

func NewMongoInvoiceRepo(db *mongo.Database) *MongoInvoiceRepo {
	return &MongoInvoiceRepo{
		invoiceColl: db.Collection("invoices"),
		counterColl: db.Collection("counters"),
	}
}

func newContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 5*time.Second)
}

func (repo *MongoInvoiceRepo) WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	return database.RunInTransaction(ctx, repo.invoiceColl.Database().Client(), fn)
}

func (repo *MongoInvoiceRepo) Insert(ctx context.Context, inv *models.Invoice) error {
	ctx, cancel := newContext(ctx)
	defer cancel()

	if _, err := repo.invoiceColl.InsertOne(ctx, inv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewEngineError(utils.ErrDuplicateInvoice, "appointment %s already has an active invoice", inv.AppointmentID)
		}
		return database.ClassifyError("error creating invoice", err)
	}
	return nil
}

func (repo *MongoInvoiceRepo) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	var inv models.Invoice
	if err := repo.invoiceColl.FindOne(ctx, bson.M{"id": id}).Decode(&inv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewEngineError(utils.ErrNotFound, "invoice %s not found", id)
		}
		return nil, database.ClassifyError(fmt.Sprintf("error fetching invoice %s", id), err)
	}
	return &inv, nil
}

func (repo *MongoInvoiceRepo) FindActiveByAppointment(ctx context.Context, appointmentID string) (*models.Invoice, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	var inv models.Invoice
	err := repo.invoiceColl.FindOne(ctx, bson.M{"appointmentId": appointmentID, "isActive": activeFilter}).Decode(&inv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, database.ClassifyError("error fetching active invoice", err)
	}
	return &inv, nil
}

func (repo *MongoInvoiceRepo) ListByAppointment(ctx context.Context, appointmentID string) ([]models.Invoice, error) {
	return repo.List(ctx, InvoiceFilter{AppointmentID: appointmentID, IncludeInactive: true})
}

func (repo *MongoInvoiceRepo) List(ctx context.Context, filter InvoiceFilter) ([]models.Invoice, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	query := bson.M{}
	if filter.AppointmentID != "" {
		query["appointmentId"] = filter.AppointmentID
	}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if !filter.IncludeInactive {
		query["isActive"] = activeFilter
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "invoiceNumber", Value: 1}})
	cursor, err := repo.invoiceColl.Find(ctx, query, opts)
	if err != nil {
		return nil, database.ClassifyError("error listing invoices", err)
	}
	defer cursor.Close(ctx)

	invoices := []models.Invoice{}
	if err := cursor.All(ctx, &invoices); err != nil {
		return nil, database.ClassifyError("error decoding invoices", err)
	}
	return invoices, nil
}

func (repo *MongoInvoiceRepo) Deactivate(ctx context.Context, id string) error {
	ctx, cancel := newContext(ctx)
	defer cancel()

	filter := bson.M{"id": id, "isActive": activeFilter}
	update := bson.M{"$set": bson.M{"isActive": false}}
	res, err := repo.invoiceColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return database.ClassifyError(fmt.Sprintf("error deactivating invoice %s", id), err)
	}
	if res.MatchedCount == 0 {
		return utils.NewEngineError(utils.ErrInvoiceSuperseded, "invoice %s is not active", id)
	}
	return nil
}

func (repo *MongoInvoiceRepo) UpdateStatus(ctx context.Context, id string, from, to models.InvoiceStatus, at time.Time) (*models.Invoice, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	filter := bson.M{"id": id, "status": from, "isActive": activeFilter}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var inv models.Invoice
	err := repo.invoiceColl.FindOneAndUpdate(ctx, filter, update, opts).Decode(&inv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, getErr := repo.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, utils.NewEngineError(utils.ErrIllegalTransition, "invoice %s is no longer %s and active", id, from)
		}
		return nil, database.ClassifyError(fmt.Sprintf("error updating invoice %s", id), err)
	}
	return &inv, nil
}
