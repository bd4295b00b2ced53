package userRepo

import (
	"context"
	"time"

	"consultbook/models"
)

type UserRepository interface {
	// GetSubscription returns the stored plan and version. Users without a
	// record read as pay-as-you-go at version 0.
	GetSubscription(ctx context.Context, uid string) (*models.User, error)
	// SaveSubscription writes sub only if the stored version still equals
	// expectedVersion and returns the new version. A mismatch fails with
	// StaleSubscriptionWrite.
	SaveSubscription(ctx context.Context, uid string, expectedVersion int64, sub models.Subscription, at time.Time) (int64, error)
}
