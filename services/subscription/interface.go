package subscription

import (
	"context"
	"time"

	userRepo "consultbook/database/repository/user"
	"consultbook/models"
	"consultbook/utils"

	"go.uber.org/zap"
)

// PlanView is the caller-facing view of a subscription.
type PlanView struct {
	UserID                 string             `json:"userId"`
	EffectivePlan          models.ServicePlan `json:"effectivePlan"`
	StoredPlan             models.ServicePlan `json:"servicePlan"`
	ProgramStartDate       *time.Time         `json:"programStartDate,omitempty"`
	ProgramEndDate         *time.Time         `json:"programEndDate,omitempty"`
	PlannedDowngrade       bool               `json:"plannedDowngrade"`
	DowngradeEffectiveDate *time.Time         `json:"downgradeEffectiveDate,omitempty"`
	Version                int64              `json:"version"`
	Action                 Action             `json:"action,omitempty"`
}

type UpdatePlanRequest struct {
	UserID        string
	RequestedPlan models.ServicePlan
	Confirm       bool
	// ExpectedVersion, when set, must match the stored version.
	ExpectedVersion *int64
}

// SubscriptionService manages the service plan stored on the user record.
type SubscriptionService interface {
	GetServicePlan(ctx context.Context, userID string) (*PlanView, error)
	UpdateServicePlan(ctx context.Context, req UpdatePlanRequest) (*PlanView, error)
	RenewServicePlan(ctx context.Context, userID string, expectedVersion *int64) (*PlanView, error)
	EffectivePlan(ctx context.Context, userID string) (models.ServicePlan, error)
	// EffectivePlanAt resolves the plan that applied to a session starting at at.
	EffectivePlanAt(ctx context.Context, userID string, at time.Time) (models.ServicePlan, error)
}

// DefaultSubscriptionService implements SubscriptionService.
type DefaultSubscriptionService struct {
	Repo     userRepo.UserRepository
	Clock    utils.Clock
	// Location is the practice's zone; month boundaries are computed in it.
	Location *time.Location
	Logger   *zap.Logger
}

func NewDefaultSubscriptionService(repo userRepo.UserRepository, loc *time.Location, logger *zap.Logger) *DefaultSubscriptionService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultSubscriptionService{Repo: repo, Clock: utils.SystemClock{}, Location: loc, Logger: logger}
}
