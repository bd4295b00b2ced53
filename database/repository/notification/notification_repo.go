package notificationRepo

import (
	"context"
	"fmt"
	"time"

	"consultbook/database"
	"consultbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// QueueRepository persists outbound notifications for the delivery worker.
type QueueRepository interface {
	Enqueue(ctx context.Context, entry *models.NotificationEntry) error
}

type MongoQueueRepo struct {
	coll *mongo.Collection
}

func NewMongoQueueRepo(db *mongo.Database) *MongoQueueRepo {
	return &MongoQueueRepo{coll: db.Collection("notifications")}
}

func (repo *MongoQueueRepo) Enqueue(ctx context.Context, entry *models.NotificationEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.coll.InsertOne(ctx, entry); err != nil {
		return database.ClassifyError(fmt.Sprintf("error queueing %s notification", entry.Type), err)
	}
	return nil
}

func (repo *MongoQueueRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}
	return nil
}
