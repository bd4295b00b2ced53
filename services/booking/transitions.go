package booking

import "consultbook/models"

type transitionRule struct {
	clientAllowed bool
	// needsNewSlot transitions move the appointment to a caller-supplied slot.
	needsNewSlot bool
	// afterStart transitions record an outcome and need the session to have begun.
	afterStart bool
}

var appointmentTransitions = map[models.AppointmentStatus]map[models.AppointmentStatus]transitionRule{
	models.AppointmentPending: {
		models.AppointmentConfirmed: {},
		models.AppointmentCancelled: {},
	},
	models.AppointmentConfirmed: {
		models.AppointmentRescheduleRequested: {clientAllowed: true},
		models.AppointmentDone:                {afterStart: true},
		models.AppointmentNoShow:              {afterStart: true},
		models.AppointmentCancelled:           {},
	},
	models.AppointmentRescheduleRequested: {
		models.AppointmentConfirmed: {needsNewSlot: true},
		models.AppointmentCancelled: {},
	},
}

func lookupTransition(from, to models.AppointmentStatus) (transitionRule, bool) {
	rule, ok := appointmentTransitions[from][to]
	return rule, ok
}
