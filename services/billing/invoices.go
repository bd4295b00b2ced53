package billing

import (
	"context"
	"strings"

	invoiceRepo "consultbook/database/repository/invoice"
	"consultbook/models"
	"consultbook/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// CreateInvoice prices and issues the single active invoice of a finished
// appointment. The duplicate check, number allocation and insert commit together.
func (s *DefaultBillingService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*CreateInvoiceResult, error) {
	ctx, span := tracer.Start(ctx, "CreateInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", req.AppointmentID))

	if strings.TrimSpace(req.AppointmentID) == "" {
		return nil, utils.NewEngineError(utils.ErrInvalidInput, "appointment id is required")
	}
	appt, err := s.Appointments.GetAppointment(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Status.IsTerminal() {
		return nil, utils.NewEngineError(utils.ErrNotInvoiceable, "appointment %s is %s", appt.ID, appt.Status)
	}

	userID := firstNonEmpty(req.UserID, appt.UserID)
	if userID != appt.UserID {
		return nil, utils.NewEngineError(utils.ErrInvalidInput, "appointment %s does not belong to user %s", appt.ID, req.UserID)
	}
	sessionType := appt.Type
	if req.SessionType != "" {
		if _, err := models.ParseAppointmentType(string(req.SessionType)); err != nil {
			return nil, utils.WrapEngineError(utils.ErrInvalidInput, "invalid session type", err)
		}
		sessionType = req.SessionType
	}

	// Coverage follows the plan in force when the session took place, so a
	// later upgrade or lapse does not change what the session costs.
	covered := false
	if s.Plans != nil {
		start, err := appt.SessionStart(s.Location)
		if err != nil {
			return nil, utils.WrapEngineError(utils.ErrInvalidInput, "appointment slot", err)
		}
		plan, err := s.Plans.EffectivePlanAt(ctx, userID, start)
		if err != nil {
			return nil, err
		}
		covered = plan == models.PlanCompleteProgram
	}

	quote, err := s.Rates.Price(PricingInput{
		Type:           sessionType,
		Status:         appt.Status,
		LateReschedule: appt.LateReschedule,
		Toggles:        req.LineItems,
		Override:       req.Amount,
		ProgramCovered: covered,
	})
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now().UTC()
	var inv *models.Invoice
	err = s.Repo.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.Repo.FindActiveByAppointment(txCtx, appt.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return utils.NewEngineError(utils.ErrDuplicateInvoice, "appointment %s already has active invoice %s", appt.ID, existing.InvoiceNumber)
		}
		number, err := s.Repo.NextInvoiceNumber(txCtx, now)
		if err != nil {
			return err
		}
		inv = &models.Invoice{
			ID:            uuid.New().String(),
			AppointmentID: appt.ID,
			UserID:        userID,
			ClientName:    firstNonEmpty(req.ClientName, appt.Name),
			ClientEmail:   firstNonEmpty(req.ClientEmail, appt.Email),
			Amount:        quote.Amount,
			Status:        models.InvoicePending,
			InvoiceNumber: number,
			IsActive:      true,
			Description:   strings.TrimSpace(req.Description),
			SessionType:   sessionType,
			SessionDate:   firstNonEmpty(req.SessionDate, appt.Date),
			LineItems:     quote.LineItems,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.Repo.Insert(txCtx, inv)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, utils.ErrorCode(err))
		return nil, err
	}

	s.Logger.Info("Invoice created",
		zap.String("invoiceID", inv.ID),
		zap.String("invoiceNumber", inv.InvoiceNumber),
		zap.String("appointmentID", inv.AppointmentID),
		zap.Float64("amount", inv.Amount))
	s.notify(ctx, inv, models.NotifyInvoiceCreated, nil)

	return &CreateInvoiceResult{InvoiceID: inv.ID, InvoiceNumber: inv.InvoiceNumber, Invoice: inv}, nil
}

// ReissueInvoice supersedes an active invoice with a new amount. The original
// is only deactivated; the successor carries the credit note reference and
// the original amount.
func (s *DefaultBillingService) ReissueInvoice(ctx context.Context, req ReissueRequest) (*ReissueResult, error) {
	ctx, span := tracer.Start(ctx, "ReissueInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", req.OriginalInvoiceID))

	if req.NewAmount <= 0 || toCents(req.NewAmount) <= 0 {
		return nil, utils.NewEngineError(utils.ErrInvalidAmount, "new amount must be greater than zero")
	}
	amount := fromCents(toCents(req.NewAmount))

	orig, err := s.Repo.GetByID(ctx, req.OriginalInvoiceID)
	if err != nil {
		return nil, err
	}
	if !orig.IsActive {
		return nil, utils.NewEngineError(utils.ErrInvoiceSuperseded, "invoice %s has already been reissued", orig.InvoiceNumber)
	}
	creditNote := invoiceRepo.CreditNoteNumber(orig.InvoiceNumber)

	now := s.Clock.Now().UTC()
	var next *models.Invoice
	err = s.Repo.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.Repo.Deactivate(txCtx, orig.ID); err != nil {
			return err
		}
		number, err := s.Repo.NextInvoiceNumber(txCtx, now)
		if err != nil {
			return err
		}
		originalAmount := orig.Amount
		next = &models.Invoice{
			ID:               uuid.New().String(),
			AppointmentID:    orig.AppointmentID,
			UserID:           orig.UserID,
			ClientName:       orig.ClientName,
			ClientEmail:      orig.ClientEmail,
			Amount:           amount,
			Status:           models.InvoicePending,
			InvoiceNumber:    number,
			IsActive:         true,
			IsReissued:       true,
			OriginalAmount:   &originalAmount,
			CreditNoteNumber: creditNote,
			Supersedes:       orig.ID,
			ReissueReason:    strings.TrimSpace(req.Reason),
			Description:      orig.Description,
			SessionType:      orig.SessionType,
			SessionDate:      orig.SessionDate,
			LineItems:        []models.LineItem{{Code: models.LineOverride, Label: "Reissued amount", Amount: amount}},
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return s.Repo.Insert(txCtx, next)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, utils.ErrorCode(err))
		return nil, err
	}

	s.Logger.Info("Invoice reissued",
		zap.String("originalInvoiceID", orig.ID),
		zap.String("newInvoiceID", next.ID),
		zap.String("creditNoteNumber", creditNote),
		zap.Float64("originalAmount", orig.Amount),
		zap.Float64("newAmount", next.Amount))
	s.notify(ctx, next, models.NotifyInvoiceReissued, map[string]any{
		"creditNoteNumber": creditNote,
		"originalAmount":   orig.Amount,
		"reason":           next.ReissueReason,
	})

	return &ReissueResult{NewInvoiceID: next.ID, CreditNoteNumber: creditNote, Invoice: next}, nil
}

func (s *DefaultBillingService) TransitionInvoiceStatus(ctx context.Context, invoiceID string, to models.InvoiceStatus) (*models.Invoice, error) {
	if _, err := models.ParseInvoiceStatus(string(to)); err != nil {
		return nil, utils.WrapEngineError(utils.ErrInvalidInput, "invalid invoice status", err)
	}
	inv, err := s.Repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.IsActive {
		return nil, utils.NewEngineError(utils.ErrInvoiceSuperseded, "invoice %s has been superseded", inv.InvoiceNumber)
	}
	if !inv.Status.CanTransitionTo(to) {
		return nil, utils.NewEngineError(utils.ErrIllegalTransition, "cannot move invoice from %s to %s", inv.Status, to)
	}

	updated, err := s.Repo.UpdateStatus(ctx, inv.ID, inv.Status, to, s.Clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Invoice status changed",
		zap.String("invoiceID", inv.ID),
		zap.String("from", string(inv.Status)),
		zap.String("to", string(to)))
	return updated, nil
}

func (s *DefaultBillingService) ConfirmPayment(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	inv, err := s.Repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoicePaid {
		return inv, nil
	}
	return s.TransitionInvoiceStatus(ctx, invoiceID, models.InvoicePaid)
}

func (s *DefaultBillingService) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *DefaultBillingService) ListInvoices(ctx context.Context, filter invoiceRepo.InvoiceFilter) ([]models.Invoice, error) {
	if filter.Status != "" {
		if _, err := models.ParseInvoiceStatus(string(filter.Status)); err != nil {
			return nil, utils.WrapEngineError(utils.ErrInvalidInput, "invalid status filter", err)
		}
	}
	return s.Repo.List(ctx, filter)
}

func (s *DefaultBillingService) InvoiceHistory(ctx context.Context, appointmentID string) ([]models.Invoice, error) {
	return s.Repo.ListByAppointment(ctx, appointmentID)
}

func (s *DefaultBillingService) notify(ctx context.Context, inv *models.Invoice, kind string, extra map[string]any) {
	if s.Notifier == nil {
		return
	}
	data := map[string]any{
		"invoiceId":     inv.ID,
		"invoiceNumber": inv.InvoiceNumber,
		"amount":        inv.Amount,
		"clientName":    inv.ClientName,
		"sessionDate":   inv.SessionDate,
		"sessionType":   string(inv.SessionType),
	}
	for k, v := range extra {
		data[k] = v
	}
	s.Notifier.Enqueue(ctx, inv.ClientEmail, kind, data)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
