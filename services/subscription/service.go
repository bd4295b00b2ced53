package subscription

import (
	"context"
	"strings"
	"time"

	"consultbook/models"
	"consultbook/utils"

	"go.uber.org/zap"
)

func viewOf(u *models.User, now time.Time) *PlanView {
	return &PlanView{
		UserID:                 u.UID,
		EffectivePlan:          EffectivePlan(u.Subscription, now),
		StoredPlan:             u.ServicePlan,
		ProgramStartDate:       u.ProgramStartDate,
		ProgramEndDate:         u.ProgramEndDate,
		PlannedDowngrade:       u.PlannedDowngrade,
		DowngradeEffectiveDate: u.DowngradeEffectiveDate,
		Version:                u.SubscriptionVersion,
	}
}

func (s *DefaultSubscriptionService) now() time.Time {
	if s.Location == nil {
		return s.Clock.Now()
	}
	return s.Clock.Now().In(s.Location)
}

func (s *DefaultSubscriptionService) load(ctx context.Context, userID string, expectedVersion *int64) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, utils.NewEngineError(utils.ErrInvalidInput, "user id is required")
	}
	u, err := s.Repo.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != u.SubscriptionVersion {
		return nil, utils.NewEngineError(utils.ErrStaleSubscriptionWrite, "expected version %d, stored version is %d", *expectedVersion, u.SubscriptionVersion)
	}
	return u, nil
}

// GetServicePlan returns the lazily evaluated plan without writing anything.
func (s *DefaultSubscriptionService) GetServicePlan(ctx context.Context, userID string) (*PlanView, error) {
	u, err := s.load(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	return viewOf(u, s.now()), nil
}

func (s *DefaultSubscriptionService) EffectivePlan(ctx context.Context, userID string) (models.ServicePlan, error) {
	view, err := s.GetServicePlan(ctx, userID)
	if err != nil {
		return "", err
	}
	return view.EffectivePlan, nil
}

func (s *DefaultSubscriptionService) EffectivePlanAt(ctx context.Context, userID string, at time.Time) (models.ServicePlan, error) {
	u, err := s.load(ctx, userID, nil)
	if err != nil {
		return "", err
	}
	if CoversSession(u.Subscription, at) {
		return models.PlanCompleteProgram, nil
	}
	return models.PlanPayAsYouGo, nil
}

func (s *DefaultSubscriptionService) UpdateServicePlan(ctx context.Context, req UpdatePlanRequest) (*PlanView, error) {
	requested, err := models.ParseServicePlan(string(req.RequestedPlan))
	if err != nil {
		return nil, utils.WrapEngineError(utils.ErrInvalidInput, "invalid service plan", err)
	}
	u, err := s.load(ctx, req.UserID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, action, err := Apply(u.Subscription, requested, req.Confirm, now)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, u, next, action, now)
}

// RenewServicePlan starts a fresh program period once the previous one lapsed.
func (s *DefaultSubscriptionService) RenewServicePlan(ctx context.Context, userID string, expectedVersion *int64) (*PlanView, error) {
	u, err := s.load(ctx, userID, expectedVersion)
	if err != nil {
		return nil, err
	}
	now := s.now()
	next, err := Renew(u.Subscription, now)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, u, next, ActionRenewed, now)
}

// save writes next guarded by the version that was read, so a concurrent
// writer between read and write surfaces as StaleSubscriptionWrite.
func (s *DefaultSubscriptionService) save(ctx context.Context, u *models.User, next models.Subscription, action Action, now time.Time) (*PlanView, error) {
	if action == ActionNone {
		view := viewOf(u, now)
		view.Action = ActionNone
		return view, nil
	}

	version, err := s.Repo.SaveSubscription(ctx, u.UID, u.SubscriptionVersion, next, now.UTC())
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Service plan updated",
		zap.String("userID", u.UID),
		zap.String("action", string(action)),
		zap.String("servicePlan", string(next.ServicePlan)),
		zap.Int64("version", version))

	saved := &models.User{UID: u.UID, Subscription: next, SubscriptionVersion: version}
	view := viewOf(saved, now)
	view.Action = action
	return view, nil
}
