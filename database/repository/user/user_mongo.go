package userRepo

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

// MongoUserRepo implements UserRepository using MongoDB.
type MongoUserRepo struct {
	coll *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection("users")}
}

func (repo *MongoUserRepo) GetSubscription(ctx context.Context, uid string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var user models.User
	err := repo.coll.FindOne(ctx, bson.M{"uid": uid}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &models.User{
				UID:          uid,
				Subscription: models.Subscription{ServicePlan: models.PlanPayAsYouGo},
			}, nil
		}
		return nil, database.ClassifyError(fmt.Sprintf("error fetching user %s", uid), err)
	}
	if user.ServicePlan == "" {
		user.ServicePlan = models.PlanPayAsYouGo
	}
	return &user, nil
}

func (repo *MongoUserRepo) SaveSubscription(ctx context.Context, uid string, expectedVersion int64, sub models.Subscription, at time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"uid": uid, "subscriptionVersion": expectedVersion}
	if expectedVersion == 0 {
		// Records created elsewhere may predate the version field.
		filter["subscriptionVersion"] = bson.M{"$in": bson.A{0, nil}}
	}

	set := bson.M{
		"servicePlan":      sub.ServicePlan,
		"plannedDowngrade": sub.PlannedDowngrade,
		"updatedAt":        at,
	}
	unset := bson.M{}
	setOrUnset := func(field string, value *time.Time) {
		if value != nil {
			set[field] = *value
		} else {
			unset[field] = ""
		}
	}
	setOrUnset("programStartDate", sub.ProgramStartDate)
	setOrUnset("programEndDate", sub.ProgramEndDate)
	setOrUnset("downgradeEffectiveDate", sub.DowngradeEffectiveDate)

	update := bson.M{
		"$set": set,
		"$inc": bson.M{"subscriptionVersion": 1},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var saved models.User
	err := repo.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	if err != nil {
		// With upsert a version mismatch surfaces as an attempted insert that
		// collides with the unique uid index.
		if mongo.IsDuplicateKeyError(err) {
			return 0, utils.NewEngineError(utils.ErrStaleSubscriptionWrite, "subscription for %s changed since version %d", uid, expectedVersion)
		}
		return 0, database.ClassifyError(fmt.Sprintf("error saving subscription for %s", uid), err)
	}
	return saved.SubscriptionVersion, nil
}

func (repo *MongoUserRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "uid", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}
