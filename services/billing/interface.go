package billing

import (
	"context"
	"time"

	invoiceRepo "consultbook/database/repository/invoice"
	"consultbook/models"
	"consultbook/services/notification"
	"consultbook/utils"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("consultbook/services/billing")

// AppointmentReader resolves the appointment an invoice is issued for.
type AppointmentReader interface {
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
}

// PlanReader resolves the service plan that applied to a session starting at at.
type PlanReader interface {
	EffectivePlanAt(ctx context.Context, userID string, at time.Time) (models.ServicePlan, error)
}

// CreateInvoiceRequest mirrors the admin invoice form. Amount is the operator
// override; empty client fields default from the appointment.
type CreateInvoiceRequest struct {
	AppointmentID string                 `json:"appointmentId"`
	UserID        string                 `json:"userId"`
	ClientName    string                 `json:"clientName"`
	ClientEmail   string                 `json:"clientEmail"`
	SessionType   models.AppointmentType `json:"sessionType"`
	SessionDate   string                 `json:"sessionDate"`
	Amount        float64                `json:"amount"`
	Description   string                 `json:"description"`
	LineItems     LineItemToggles        `json:"lineItems"`
}

type ReissueRequest struct {
	OriginalInvoiceID string  `json:"originalInvoiceId"`
	NewAmount         float64 `json:"newAmount"`
	Reason            string  `json:"reason"`
}

type CreateInvoiceResult struct {
	InvoiceID     string          `json:"invoiceId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Invoice       *models.Invoice `json:"invoice"`
}

type ReissueResult struct {
	NewInvoiceID     string          `json:"newInvoiceId"`
	CreditNoteNumber string          `json:"creditNoteNumber"`
	Invoice          *models.Invoice `json:"invoice"`
}

// BillingService prices, issues and reissues invoices.
type BillingService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*CreateInvoiceResult, error)
	ReissueInvoice(ctx context.Context, req ReissueRequest) (*ReissueResult, error)
	TransitionInvoiceStatus(ctx context.Context, invoiceID string, to models.InvoiceStatus) (*models.Invoice, error)
	// ConfirmPayment marks an invoice paid; repeated confirmations are no-ops.
	ConfirmPayment(ctx context.Context, invoiceID string) (*models.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)
	ListInvoices(ctx context.Context, filter invoiceRepo.InvoiceFilter) ([]models.Invoice, error)
	// InvoiceHistory returns the whole reissue chain of an appointment, oldest first.
	InvoiceHistory(ctx context.Context, appointmentID string) ([]models.Invoice, error)
}

// DefaultBillingService implements BillingService.
type DefaultBillingService struct {
	Repo         invoiceRepo.InvoiceRepository
	Appointments AppointmentReader
	Plans        PlanReader
	Notifier     notification.NotificationService
	Rates        RateCard
	Clock        utils.Clock
	// Location resolves appointment slots to instants for plan coverage.
	Location     *time.Location
	Logger       *zap.Logger
}

func NewDefaultBillingService(
	repo invoiceRepo.InvoiceRepository,
	appointments AppointmentReader,
	plans PlanReader,
	notifier notification.NotificationService,
	rates RateCard,
	loc *time.Location,
	logger *zap.Logger,
) *DefaultBillingService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultBillingService{
		Repo:         repo,
		Appointments: appointments,
		Plans:        plans,
		Notifier:     notifier,
		Rates:        rates,
		Clock:        utils.SystemClock{},
		Location:     loc,
		Logger:       logger,
	}
}
