package schedulerRepo

import (
	"context"
	"time"

	"consultbook/models"
)

// StatusChange describes an appointment status write.
type StatusChange struct {
	Status models.AppointmentStatus
	// Date and Timeslot move the appointment when non-empty.
	Date           string
	Timeslot       string
	LateReschedule *bool
	At             time.Time
}

// AppointmentFilter narrows ListAppointments; zero fields are ignored.
type AppointmentFilter struct {
	UserID string
	Date   string
	Status models.AppointmentStatus
}

type SchedulerRepository interface {
	// WithTransaction runs fn atomically; calls made with the context given to fn join it.
	WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error

	InsertAppointment(ctx context.Context, appt *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
	FindActiveInSlot(ctx context.Context, date, timeslot string) ([]models.Appointment, error)
	// UpdateAppointmentStatus applies change only if the stored status still equals from.
	UpdateAppointmentStatus(ctx context.Context, id string, from models.AppointmentStatus, change StatusChange) (*models.Appointment, error)

	FindBlockedSlots(ctx context.Context, date string) ([]models.BlockedSlot, error)
	CreateBlockedSlot(ctx context.Context, blocked *models.BlockedSlot) error
	RemoveBlockedSlot(ctx context.Context, id string) error
}
