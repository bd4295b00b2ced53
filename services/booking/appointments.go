package booking

import (
	"context"
	"errors"
	"strings"

	schedulerRepo "consultbook/database/repository/scheduler"
	"consultbook/models"
	"consultbook/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

func (s *DefaultAppointmentService) CheckSlot(ctx context.Context, date, timeslot string) (SlotAvailability, error) {
	return s.Checker.CheckSlot(ctx, date, timeslot, "")
}

// BookAppointment reserves a slot as a pending appointment. The availability
// check and the insert share one transaction; the unique slot index catches
// writers that race past the check.
func (s *DefaultAppointmentService) BookAppointment(ctx context.Context, req BookingRequest) (*models.Appointment, error) {
	ctx, span := tracer.Start(ctx, "BookAppointment")
	defer span.End()
	span.SetAttributes(attribute.String("slot.date", req.Date), attribute.String("slot.timeslot", req.Timeslot))

	if strings.TrimSpace(req.UserID) == "" {
		return nil, utils.NewEngineError(utils.ErrInvalidInput, "user id is required")
	}
	if _, err := models.ParseAppointmentType(string(req.Type)); err != nil {
		return nil, utils.WrapEngineError(utils.ErrInvalidInput, "invalid appointment type", err)
	}
	if err := validateSlot(req.Date, req.Timeslot); err != nil {
		return nil, err
	}
	start, err := models.ParseSlot(req.Date, req.Timeslot, s.Location)
	if err != nil {
		return nil, utils.WrapEngineError(utils.ErrInvalidInput, "invalid slot", err)
	}
	now := s.Clock.Now()
	if !start.After(now) {
		return nil, utils.NewEngineError(utils.ErrInvalidInput, "slot %s %s is in the past", req.Date, req.Timeslot)
	}

	appt := &models.Appointment{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Date:      req.Date,
		Timeslot:  req.Timeslot,
		Type:      req.Type,
		Status:    models.AppointmentPending,
		Email:     strings.TrimSpace(req.Email),
		Name:      strings.TrimSpace(req.Name),
		SlotKey:   models.SlotKey(req.Date, req.Timeslot),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}

	err = s.Repo.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := requireAvailable(txCtx, s.Checker, appt.Date, appt.Timeslot, ""); err != nil {
			return err
		}
		return s.Repo.InsertAppointment(txCtx, appt)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, utils.ErrorCode(err))
		if errors.Is(err, utils.ErrSlotConflict) {
			s.Logger.Info("Booking rejected, slot unavailable",
				zap.String("date", appt.Date), zap.String("timeslot", appt.Timeslot), zap.String("userID", appt.UserID))
		}
		return nil, err
	}

	s.Logger.Info("Appointment booked",
		zap.String("appointmentID", appt.ID),
		zap.String("userID", appt.UserID),
		zap.String("date", appt.Date),
		zap.String("timeslot", appt.Timeslot))
	return appt, nil
}

// TransitionAppointment applies one edge of the appointment state machine as a
// compare-and-set on the current status.
func (s *DefaultAppointmentService) TransitionAppointment(ctx context.Context, req TransitionRequest) (*models.Appointment, error) {
	ctx, span := tracer.Start(ctx, "TransitionAppointment")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", req.AppointmentID), attribute.String("appointment.to", string(req.NewStatus)))

	if _, err := models.ParseAppointmentStatus(string(req.NewStatus)); err != nil {
		return nil, utils.WrapEngineError(utils.ErrInvalidInput, "invalid status", err)
	}

	appt, err := s.Repo.GetAppointment(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !req.Admin && appt.UserID != req.ActorUserID {
		return nil, utils.NewEngineError(utils.ErrForbidden, "appointment %s belongs to another user", appt.ID)
	}

	rule, ok := lookupTransition(appt.Status, req.NewStatus)
	if !ok {
		return nil, utils.NewEngineError(utils.ErrIllegalTransition, "cannot move appointment from %s to %s", appt.Status, req.NewStatus)
	}
	if !rule.clientAllowed && !req.Admin {
		return nil, utils.NewEngineError(utils.ErrForbidden, "only an administrator can move an appointment to %s", req.NewStatus)
	}

	now := s.Clock.Now()
	start, err := appt.SessionStart(s.Location)
	if err != nil {
		return nil, err
	}

	change := schedulerRepo.StatusChange{Status: req.NewStatus, At: now.UTC()}
	switch {
	case req.NewStatus == models.AppointmentRescheduleRequested:
		if !now.Before(start) {
			return nil, utils.NewEngineError(utils.ErrIllegalTransition, "session %s has already started", appt.ID)
		}
		// Once late, always late: an earlier late request still owes its fee.
		if start.Sub(now) <= s.LateWindow {
			late := true
			change.LateReschedule = &late
		}
	case rule.afterStart:
		if now.Before(start) {
			return nil, utils.NewEngineError(utils.ErrIllegalTransition, "session %s has not started yet", appt.ID)
		}
	case rule.needsNewSlot:
		if req.Date == "" || req.Timeslot == "" {
			return nil, utils.NewEngineError(utils.ErrInvalidInput, "a new date and timeslot are required to approve a reschedule")
		}
		if err := validateSlot(req.Date, req.Timeslot); err != nil {
			return nil, err
		}
		newStart, err := models.ParseSlot(req.Date, req.Timeslot, s.Location)
		if err != nil {
			return nil, utils.WrapEngineError(utils.ErrInvalidInput, "invalid slot", err)
		}
		if !newStart.After(now) {
			return nil, utils.NewEngineError(utils.ErrInvalidInput, "slot %s %s is in the past", req.Date, req.Timeslot)
		}
		change.Date, change.Timeslot = req.Date, req.Timeslot
	}

	var updated *models.Appointment
	if req.NewStatus == models.AppointmentConfirmed {
		date, timeslot := appt.Date, appt.Timeslot
		if change.Date != "" {
			date, timeslot = change.Date, change.Timeslot
		}
		err = s.Repo.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := requireAvailable(txCtx, s.Checker, date, timeslot, appt.ID); err != nil {
				return err
			}
			var txErr error
			updated, txErr = s.Repo.UpdateAppointmentStatus(txCtx, appt.ID, appt.Status, change)
			return txErr
		})
	} else {
		updated, err = s.Repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, change)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, utils.ErrorCode(err))
		return nil, err
	}

	s.Logger.Info("Appointment status changed",
		zap.String("appointmentID", updated.ID),
		zap.String("from", string(appt.Status)),
		zap.String("to", string(updated.Status)),
		zap.Bool("lateReschedule", updated.LateReschedule))

	if updated.Status == models.AppointmentConfirmed {
		s.afterConfirm(ctx, *updated)
	}
	return updated, nil
}

// afterConfirm queues the confirmation and schedules the session reminder.
// Neither affects the outcome of the transition.
func (s *DefaultAppointmentService) afterConfirm(ctx context.Context, appt models.Appointment) {
	if s.Notifier != nil {
		s.Notifier.Enqueue(ctx, appt.Email, models.NotifyAppointmentConfirmed, map[string]any{
			"appointmentId": appt.ID,
			"name":          appt.Name,
			"date":          appt.Date,
			"timeslot":      appt.Timeslot,
			"type":          string(appt.Type),
		})
	}
	if s.Reminders == nil {
		return
	}
	start, err := appt.SessionStart(s.Location)
	if err != nil {
		return
	}
	fireAt := start.Add(-s.ReminderLead)
	if !fireAt.After(s.Clock.Now()) {
		return
	}
	if err := s.Reminders.ScheduleReminder(ctx, appt, fireAt); err != nil {
		s.Logger.Warn("Failed to schedule reminder", zap.String("appointmentID", appt.ID), zap.Error(err))
	}
}

// SendReminder queues a reminder if the appointment is still confirmed for the
// slot the reminder was scheduled against.
func (s *DefaultAppointmentService) SendReminder(ctx context.Context, payload models.ReminderPayload) error {
	appt, err := s.Repo.GetAppointment(ctx, payload.AppointmentID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			s.Logger.Warn("Reminder for unknown appointment", zap.String("appointmentID", payload.AppointmentID))
			return nil
		}
		return err
	}
	if appt.Status != models.AppointmentConfirmed || appt.Date != payload.Date || appt.Timeslot != payload.Timeslot {
		s.Logger.Debug("Skipping stale reminder",
			zap.String("appointmentID", appt.ID), zap.String("status", string(appt.Status)))
		return nil
	}
	if s.Notifier != nil {
		s.Notifier.Enqueue(ctx, appt.Email, models.NotifyAppointmentReminder, map[string]any{
			"appointmentId": appt.ID,
			"name":          appt.Name,
			"date":          appt.Date,
			"timeslot":      appt.Timeslot,
		})
	}
	return nil
}

func (s *DefaultAppointmentService) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	return s.Repo.GetAppointment(ctx, id)
}

func (s *DefaultAppointmentService) ListAppointments(ctx context.Context, filter schedulerRepo.AppointmentFilter) ([]models.Appointment, error) {
	if filter.Date != "" {
		if _, err := models.ParseSlot(filter.Date, "00:00", nil); err != nil {
			return nil, utils.NewEngineError(utils.ErrInvalidInput, "date must be YYYY-MM-DD, got %q", filter.Date)
		}
	}
	if filter.Status != "" {
		if _, err := models.ParseAppointmentStatus(string(filter.Status)); err != nil {
			return nil, utils.WrapEngineError(utils.ErrInvalidInput, "invalid status filter", err)
		}
	}
	return s.Repo.ListAppointments(ctx, filter)
}

func (s *DefaultAppointmentService) CreateBlockedSlot(ctx context.Context, date, timeslot, reason string) (*models.BlockedSlot, error) {
	if timeslot == "" {
		if _, err := models.ParseSlot(date, "00:00", nil); err != nil {
			return nil, utils.NewEngineError(utils.ErrInvalidInput, "date must be YYYY-MM-DD, got %q", date)
		}
	} else if err := validateSlot(date, timeslot); err != nil {
		return nil, err
	}

	blocked := &models.BlockedSlot{
		ID:        uuid.New().String(),
		Date:      date,
		Timeslot:  timeslot,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: s.Clock.Now().UTC(),
	}
	if err := s.Repo.CreateBlockedSlot(ctx, blocked); err != nil {
		return nil, err
	}
	s.Logger.Info("Slot blocked", zap.String("date", date), zap.String("timeslot", timeslot))
	return blocked, nil
}

func (s *DefaultAppointmentService) RemoveBlockedSlot(ctx context.Context, id string) error {
	return s.Repo.RemoveBlockedSlot(ctx, id)
}
