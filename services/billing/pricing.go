package billing

import (
	"fmt"
	"math"

	"consultbook/config"
	"consultbook/models"
	"consultbook/utils"
)

// RateCard holds the pricing policy in currency units.
type RateCard struct {
	Initial           float64
	FollowUp          float64
	LateRescheduleFee float64
}

func DefaultRateCard() RateCard {
	return RateCard{Initial: 95.00, FollowUp: 75.00, LateRescheduleFee: 5.00}
}

// RateCardFromConfig reads the configured rates, keeping defaults for unset values.
func RateCardFromConfig(cfg config.Config) RateCard {
	rc := DefaultRateCard()
	if cfg.SessionRateInitial > 0 {
		rc.Initial = cfg.SessionRateInitial
	}
	if cfg.SessionRateFollowUp > 0 {
		rc.FollowUp = cfg.SessionRateFollowUp
	}
	if cfg.LateRescheduleFee > 0 {
		rc.LateRescheduleFee = cfg.LateRescheduleFee
	}
	return rc
}

func (r RateCard) SessionRate(t models.AppointmentType) (float64, error) {
	switch t {
	case models.AppointmentInitial:
		return r.Initial, nil
	case models.AppointmentFollowUp:
		return r.FollowUp, nil
	}
	return 0, utils.NewEngineError(utils.ErrInvalidInput, "no session rate for type %q", t)
}

// LineItemToggles enables the individual charges of an invoice.
type LineItemToggles struct {
	SessionRate       bool `json:"sessionRate"`
	NoShowPenalty     bool `json:"noShowPenalty"`
	LateRescheduleFee bool `json:"lateRescheduleFee"`
}

type PricingInput struct {
	Type           models.AppointmentType
	Status         models.AppointmentStatus
	LateReschedule bool
	Toggles        LineItemToggles
	// Override replaces the computed total when greater than zero.
	Override float64
	// ProgramCovered zeroes the session rate for complete-program clients.
	ProgramCovered bool
}

type Quote struct {
	Amount     float64
	LineItems  []models.LineItem
	Overridden bool
}

func toCents(v float64) int64 { return int64(math.Round(v * 100)) }

func fromCents(c int64) float64 { return float64(c) / 100 }

// Price computes an invoice total. A toggle only counts when its charge applies:
// the no-show penalty needs status no-show and the late fee needs a late
// reschedule on record.
func (r RateCard) Price(in PricingInput) (Quote, error) {
	if in.Override < 0 {
		return Quote{}, utils.NewEngineError(utils.ErrInvalidAmount, "override must be positive, got %.2f", in.Override)
	}
	if in.Override > 0 {
		amount := fromCents(toCents(in.Override))
		if amount <= 0 {
			return Quote{}, utils.NewEngineError(utils.ErrInvalidAmount, "override rounds to zero")
		}
		return Quote{
			Amount:     amount,
			LineItems:  []models.LineItem{{Code: models.LineOverride, Label: "Manual amount", Amount: amount}},
			Overridden: true,
		}, nil
	}

	rate, err := r.SessionRate(in.Type)
	if err != nil {
		return Quote{}, err
	}
	rateCents := toCents(rate)

	var items []models.LineItem
	var total int64
	add := func(code, label string, cents int64) {
		items = append(items, models.LineItem{Code: code, Label: label, Amount: fromCents(cents)})
		total += cents
	}

	if in.Toggles.SessionRate {
		if in.ProgramCovered {
			add(models.LineSessionRate, fmt.Sprintf("%s session (Complete Program)", in.Type), 0)
		} else {
			add(models.LineSessionRate, fmt.Sprintf("%s session", in.Type), rateCents)
		}
	}
	if in.Toggles.NoShowPenalty && in.Status == models.AppointmentNoShow {
		add(models.LineNoShowPenalty, "No-show penalty (50%)", int64(math.Round(float64(rateCents)/2)))
	}
	if in.Toggles.LateRescheduleFee && in.LateReschedule {
		add(models.LineLateRescheduleFee, "Late reschedule fee", toCents(r.LateRescheduleFee))
	}

	if len(items) == 0 {
		return Quote{}, utils.NewEngineError(utils.ErrInvalidAmount, "no applicable line item enabled and no override given")
	}
	if total <= 0 {
		return Quote{}, utils.NewEngineError(utils.ErrInvalidAmount, "computed amount %.2f is not billable", fromCents(total))
	}
	return Quote{Amount: fromCents(total), LineItems: items}, nil
}
