package models

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the wire format of Appointment.Date.
	DateLayout = "2006-01-02"
	// TimeslotLayout is the wire format of Appointment.Timeslot (session start).
	TimeslotLayout = "15:04"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentPending             AppointmentStatus = "pending"
	AppointmentConfirmed           AppointmentStatus = "confirmed"
	AppointmentRescheduleRequested AppointmentStatus = "reschedule_requested"
	AppointmentDone                AppointmentStatus = "done"
	AppointmentNoShow              AppointmentStatus = "no-show"
	AppointmentCancelled           AppointmentStatus = "cancelled"
)

var appointmentStatuses = map[AppointmentStatus]bool{
	AppointmentPending:             true,
	AppointmentConfirmed:           true,
	AppointmentRescheduleRequested: true,
	AppointmentDone:                true,
	AppointmentNoShow:              true,
	AppointmentCancelled:           true,
}

// ParseAppointmentStatus validates a status received from a caller.
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	st := AppointmentStatus(s)
	if !appointmentStatuses[st] {
		return "", fmt.Errorf("unknown appointment status %q", s)
	}
	return st, nil
}

// HoldsSlot reports whether an appointment in this status reserves its slot.
func (s AppointmentStatus) HoldsSlot() bool {
	return s == AppointmentPending || s == AppointmentConfirmed
}

// IsTerminal reports whether no further transitions are possible.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentDone || s == AppointmentNoShow || s == AppointmentCancelled
}

// AppointmentType selects the session kind and therefore its rate.
type AppointmentType string

const (
	AppointmentInitial  AppointmentType = "Initial"
	AppointmentFollowUp AppointmentType = "Follow-up"
)

func ParseAppointmentType(s string) (AppointmentType, error) {
	switch AppointmentType(s) {
	case AppointmentInitial, AppointmentFollowUp:
		return AppointmentType(s), nil
	}
	return "", fmt.Errorf("unknown appointment type %q", s)
}

// Appointment is a booked consultation. Records are never deleted.
type Appointment struct {
	ID             string            `bson:"id" json:"id"`
	UserID         string            `bson:"userId" json:"userId"`
	Date           string            `bson:"date" json:"date"`
	Timeslot       string            `bson:"timeslot" json:"timeslot"`
	Type           AppointmentType   `bson:"type" json:"type"`
	Status         AppointmentStatus `bson:"status" json:"status"`
	Email          string            `bson:"email" json:"email"`
	Name           string            `bson:"name" json:"name"`
	LateReschedule bool              `bson:"lateReschedule" json:"lateReschedule"`
	// SlotKey is only present while Status holds the slot; a unique index on it
	// enforces one holder per (date, timeslot).
	SlotKey   string    `bson:"slotKey,omitempty" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SlotKey builds the reservation key for a (date, timeslot) pair.
func SlotKey(date, timeslot string) string {
	return date + "#" + timeslot
}

// ParseSlot returns the session start of a (date, timeslot) pair in loc.
func ParseSlot(date, timeslot string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(DateLayout+" "+TimeslotLayout, date+" "+timeslot, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot %q %q: %w", date, timeslot, err)
	}
	return start, nil
}

// SessionStart returns when the session begins.
func (a Appointment) SessionStart(loc *time.Location) (time.Time, error) {
	return ParseSlot(a.Date, a.Timeslot, loc)
}
