package booking

import (
	"context"
	"time"

	schedulerRepo "consultbook/database/repository/scheduler"
	"consultbook/models"
	"consultbook/services/notification"
	"consultbook/utils"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("consultbook/services/booking")

// BookingRequest carries a client's request for a slot.
type BookingRequest struct {
	UserID   string
	Date     string
	Timeslot string
	Type     models.AppointmentType
	Email    string
	Name     string
}

// TransitionRequest moves an appointment to NewStatus. Date and Timeslot are
// required when approving a reschedule.
type TransitionRequest struct {
	AppointmentID string
	NewStatus     models.AppointmentStatus
	Date          string
	Timeslot      string
	ActorUserID   string
	Admin         bool
}

// AppointmentService books appointments and drives their status.
type AppointmentService interface {
	CheckSlot(ctx context.Context, date, timeslot string) (SlotAvailability, error)
	BookAppointment(ctx context.Context, req BookingRequest) (*models.Appointment, error)
	TransitionAppointment(ctx context.Context, req TransitionRequest) (*models.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, filter schedulerRepo.AppointmentFilter) ([]models.Appointment, error)
	SendReminder(ctx context.Context, payload models.ReminderPayload) error

	CreateBlockedSlot(ctx context.Context, date, timeslot, reason string) (*models.BlockedSlot, error)
	RemoveBlockedSlot(ctx context.Context, id string) error
}

// ReminderScheduler arranges a reminder to fire at fireAt.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, appt models.Appointment, fireAt time.Time) error
}

// DefaultAppointmentService implements AppointmentService.
type DefaultAppointmentService struct {
	Repo      schedulerRepo.SchedulerRepository
	Checker   SlotAvailabilityChecker
	Notifier  notification.NotificationService
	Reminders ReminderScheduler
	Clock     utils.Clock
	Location  *time.Location
	// LateWindow is how close to the session a reschedule request counts as late.
	LateWindow   time.Duration
	ReminderLead time.Duration
	Logger       *zap.Logger
}

// NewDefaultAppointmentService wires the service with the system clock. The
// reminder scheduler may be nil, in which case no reminders are scheduled.
func NewDefaultAppointmentService(
	repo schedulerRepo.SchedulerRepository,
	notifier notification.NotificationService,
	reminders ReminderScheduler,
	loc *time.Location,
	lateWindow, reminderLead time.Duration,
	logger *zap.Logger,
) *DefaultAppointmentService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultAppointmentService{
		Repo:         repo,
		Checker:      &DefaultSlotAvailabilityChecker{Repo: repo},
		Notifier:     notifier,
		Reminders:    reminders,
		Clock:        utils.SystemClock{},
		Location:     loc,
		LateWindow:   lateWindow,
		ReminderLead: reminderLead,
		Logger:       logger,
	}
}
