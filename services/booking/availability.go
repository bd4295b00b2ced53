package booking

import (
	"context"
	"time"

	schedulerRepo "consultbook/database/repository/scheduler"
	"consultbook/models"
	"consultbook/utils"
)

// AvailabilityReason explains a CheckSlot verdict.
type AvailabilityReason string

const (
	ReasonOK      AvailabilityReason = "ok"
	ReasonBooked  AvailabilityReason = "booked"
	ReasonBlocked AvailabilityReason = "blocked"
)

type SlotAvailability struct {
	Available bool               `json:"available"`
	Reason    AvailabilityReason `json:"reason"`
}

// SlotAvailabilityChecker is a pure read. Booking writes must repeat the check
// with the transaction context so the verdict and the write commit together.
type SlotAvailabilityChecker interface {
	// CheckSlot ignores the hold of excludeID, which may be empty.
	CheckSlot(ctx context.Context, date, timeslot, excludeID string) (SlotAvailability, error)
}

type DefaultSlotAvailabilityChecker struct {
	Repo schedulerRepo.SchedulerRepository
}

func (c *DefaultSlotAvailabilityChecker) CheckSlot(ctx context.Context, date, timeslot, excludeID string) (SlotAvailability, error) {
	if err := validateSlot(date, timeslot); err != nil {
		return SlotAvailability{}, err
	}

	blocks, err := c.Repo.FindBlockedSlots(ctx, date)
	if err != nil {
		return SlotAvailability{}, err
	}
	for _, b := range blocks {
		if b.Covers(timeslot) {
			return SlotAvailability{Available: false, Reason: ReasonBlocked}, nil
		}
	}

	holders, err := c.Repo.FindActiveInSlot(ctx, date, timeslot)
	if err != nil {
		return SlotAvailability{}, err
	}
	for _, a := range holders {
		if a.ID != excludeID {
			return SlotAvailability{Available: false, Reason: ReasonBooked}, nil
		}
	}
	return SlotAvailability{Available: true, Reason: ReasonOK}, nil
}

func validateSlot(date, timeslot string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return utils.NewEngineError(utils.ErrInvalidInput, "date must be YYYY-MM-DD, got %q", date)
	}
	if _, err := time.Parse(models.TimeslotLayout, timeslot); err != nil {
		return utils.NewEngineError(utils.ErrInvalidInput, "timeslot must be HH:MM, got %q", timeslot)
	}
	return nil
}

// requireAvailable turns a negative verdict into SlotConflict.
func requireAvailable(ctx context.Context, checker SlotAvailabilityChecker, date, timeslot, excludeID string) error {
	verdict, err := checker.CheckSlot(ctx, date, timeslot, excludeID)
	if err != nil {
		return err
	}
	if !verdict.Available {
		return utils.NewEngineError(utils.ErrSlotConflict, "slot %s %s is %s", date, timeslot, verdict.Reason)
	}
	return nil
}
