package models

import (
	"fmt"
	"time"
)

// ServicePlan is the billing tier stored on the user record.
type ServicePlan string

const (
	PlanPayAsYouGo      ServicePlan = "pay-as-you-go"
	PlanCompleteProgram ServicePlan = "complete-program"
)

func ParseServicePlan(s string) (ServicePlan, error) {
	switch ServicePlan(s) {
	case PlanPayAsYouGo, PlanCompleteProgram:
		return ServicePlan(s), nil
	}
	return "", fmt.Errorf("unknown service plan %q", s)
}

// Subscription is the plan fragment embedded in a user document. The program
// dates are meaningful only while ServicePlan is complete-program.
type Subscription struct {
	ServicePlan            ServicePlan `bson:"servicePlan" json:"servicePlan"`
	ProgramStartDate       *time.Time  `bson:"programStartDate,omitempty" json:"programStartDate,omitempty"`
	ProgramEndDate         *time.Time  `bson:"programEndDate,omitempty" json:"programEndDate,omitempty"`
	PlannedDowngrade       bool        `bson:"plannedDowngrade" json:"plannedDowngrade"`
	DowngradeEffectiveDate *time.Time  `bson:"downgradeEffectiveDate,omitempty" json:"downgradeEffectiveDate,omitempty"`
}

// User is the subset of the user record owned by this service.
type User struct {
	UID          string `bson:"uid" json:"uid"`
	Subscription `bson:",inline"`
	// SubscriptionVersion increments on every subscription write.
	SubscriptionVersion int64     `bson:"subscriptionVersion" json:"subscriptionVersion"`
	UpdatedAt           time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
