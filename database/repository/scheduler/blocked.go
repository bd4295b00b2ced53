package schedulerRepo

import (
	"context"
	"fmt"

	"consultbook/database"
	"consultbook/models"
	"consultbook/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// FindBlockedSlots retrieves all blocks recorded for a date.
func (repo *MongoSchedulerRepo) FindBlockedSlots(ctx context.Context, date string) ([]models.BlockedSlot, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	cursor, err := repo.blockedColl.Find(ctx, bson.M{"date": date})
	if err != nil {
		return nil, database.ClassifyError("error fetching blocked slots", err)
	}
	defer cursor.Close(ctx)

	blocked := []models.BlockedSlot{}
	for cursor.Next(ctx) {
		var b models.BlockedSlot
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding blocked slot: %w", err)
		}
		blocked = append(blocked, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, database.ClassifyError("cursor error", err)
	}
	return blocked, nil
}

// CreateBlockedSlot inserts a new block record.
func (repo *MongoSchedulerRepo) CreateBlockedSlot(ctx context.Context, blocked *models.BlockedSlot) error {
	ctx, cancel := newContext(ctx)
	defer cancel()

	if _, err := repo.blockedColl.InsertOne(ctx, blocked); err != nil {
		return database.ClassifyError("error creating blocked slot", err)
	}
	return nil
}

// RemoveBlockedSlot removes a block record.
func (repo *MongoSchedulerRepo) RemoveBlockedSlot(ctx context.Context, id string) error {
	ctx, cancel := newContext(ctx)
	defer cancel()

	res, err := repo.blockedColl.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return database.ClassifyError(fmt.Sprintf("error removing blocked slot %s", id), err)
	}
	if res.DeletedCount == 0 {
		return utils.NewEngineError(utils.ErrNotFound, "blocked slot %s not found", id)
	}
	return nil
}
