package invoiceRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates invoice indexes and the counters collection (collections
// cannot be created implicitly inside a transaction on older servers).
func (repo *MongoInvoiceRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "invoiceNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		// At most one active invoice per appointment.
		{
			Keys: bson.D{{Key: "appointmentId", Value: 1}},
			Options: options.Index().
				SetName("uniq_active_invoice").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isActive": true}),
		},
		{Keys: bson.D{{Key: "appointmentId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	}
	if _, err := repo.invoiceColl.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create invoice indexes: %w", err)
	}

	err := repo.counterColl.Database().CreateCollection(ctx, repo.counterColl.Name())
	var cmdErr mongo.CommandError
	if err != nil && !(errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists") {
		return fmt.Errorf("failed to create counters collection: %w", err)
	}
	return nil
}
