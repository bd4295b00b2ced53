package subscription

import (
	"time"

	"consultbook/models"
	"consultbook/utils"
)

// ProgramMonths is the length of one complete-program period.
const ProgramMonths = 3

// Action names the state change Apply decided on.
type Action string

const (
	ActionNone               Action = "none"
	ActionUpgraded           Action = "upgraded"
	ActionRenewed            Action = "renewed"
	ActionDowngradeScheduled Action = "downgrade_scheduled"
	ActionDowngradeCancelled Action = "downgrade_cancelled"
	ActionDowngraded         Action = "downgraded"
)

// IsProgramActive reports whether sub grants program benefits at now.
func IsProgramActive(sub models.Subscription, now time.Time) bool {
	if sub.ServicePlan != models.PlanCompleteProgram || sub.ProgramEndDate == nil {
		return false
	}
	if !now.Before(*sub.ProgramEndDate) {
		return false
	}
	if sub.PlannedDowngrade && sub.DowngradeEffectiveDate != nil && !now.Before(*sub.DowngradeEffectiveDate) {
		return false
	}
	return true
}

// EffectivePlan is the plan callers see. Expiry is evaluated lazily here and
// never written back.
func EffectivePlan(sub models.Subscription, now time.Time) models.ServicePlan {
	if IsProgramActive(sub, now) {
		return models.PlanCompleteProgram
	}
	return models.PlanPayAsYouGo
}

// CoversSession reports whether a session starting at start falls inside the
// stored program period. A program bought after the session never covers it.
func CoversSession(sub models.Subscription, start time.Time) bool {
	if sub.ProgramStartDate == nil || start.Before(*sub.ProgramStartDate) {
		return false
	}
	return IsProgramActive(sub, start)
}

// FirstOfNextMonth returns midnight on the first day of the month after now,
// in now's location.
func FirstOfNextMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
}

func startProgram(now time.Time) models.Subscription {
	start := now
	end := now.AddDate(0, ProgramMonths, 0)
	return models.Subscription{
		ServicePlan:      models.PlanCompleteProgram,
		ProgramStartDate: &start,
		ProgramEndDate:   &end,
	}
}

// Upgrade starts a program period for a pay-as-you-go client.
func Upgrade(sub models.Subscription, now time.Time) (models.Subscription, error) {
	if IsProgramActive(sub, now) {
		return sub, utils.NewEngineError(utils.ErrIllegalTransition, "program already active until %s", sub.ProgramEndDate.Format(models.DateLayout))
	}
	return startProgram(now), nil
}

// Renew starts a new period after the previous one lapsed.
func Renew(sub models.Subscription, now time.Time) (models.Subscription, error) {
	if sub.ProgramEndDate == nil {
		return sub, utils.NewEngineError(utils.ErrIllegalTransition, "there is no program to renew")
	}
	if IsProgramActive(sub, now) {
		return sub, utils.NewEngineError(utils.ErrIllegalTransition, "program is active until %s", sub.ProgramEndDate.Format(models.DateLayout))
	}
	return startProgram(now), nil
}

// ScheduleDowngrade keeps the program until the first of next month.
func ScheduleDowngrade(sub models.Subscription, now time.Time) (models.Subscription, error) {
	if !IsProgramActive(sub, now) {
		return sub, utils.NewEngineError(utils.ErrIllegalTransition, "no active program to downgrade")
	}
	next := sub
	effective := FirstOfNextMonth(now)
	next.PlannedDowngrade = true
	next.DowngradeEffectiveDate = &effective
	return next, nil
}

// Apply resolves a requested plan against the current state. Re-requesting an
// active program never moves its dates.
func Apply(sub models.Subscription, requested models.ServicePlan, confirm bool, now time.Time) (models.Subscription, Action, error) {
	active := IsProgramActive(sub, now)

	switch requested {
	case models.PlanCompleteProgram:
		if active {
			if !sub.PlannedDowngrade {
				return sub, ActionNone, nil
			}
			next := sub
			next.PlannedDowngrade = false
			next.DowngradeEffectiveDate = nil
			return next, ActionDowngradeCancelled, nil
		}
		if !confirm {
			return sub, ActionNone, utils.NewEngineError(utils.ErrConfirmationRequired, "switching to the complete program must be confirmed")
		}
		if sub.ProgramEndDate != nil {
			next, err := Renew(sub, now)
			return next, ActionRenewed, err
		}
		next, err := Upgrade(sub, now)
		return next, ActionUpgraded, err

	case models.PlanPayAsYouGo:
		switch {
		case active && sub.PlannedDowngrade:
			return sub, ActionNone, nil
		case active:
			next, err := ScheduleDowngrade(sub, now)
			return next, ActionDowngradeScheduled, err
		case sub.ServicePlan == models.PlanCompleteProgram:
			return models.Subscription{ServicePlan: models.PlanPayAsYouGo}, ActionDowngraded, nil
		default:
			return sub, ActionNone, nil
		}
	}
	return sub, ActionNone, utils.NewEngineError(utils.ErrInvalidInput, "unknown service plan %q", requested)
}
