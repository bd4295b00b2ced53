package invoiceRepo

import (
	"context"
	"time"

	"consultbook/models"
)

// InvoiceFilter narrows List; zero fields are ignored.
type InvoiceFilter struct {
	AppointmentID   string
	UserID          string
	Status          models.InvoiceStatus
	IncludeInactive bool
}

type InvoiceRepository interface {
	// WithTransaction runs fn atomically; calls made with the context given to fn join it.
	WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error

	// Insert fails with DuplicateInvoice when the appointment already has an active invoice.
	Insert(ctx context.Context, inv *models.Invoice) error
	GetByID(ctx context.Context, id string) (*models.Invoice, error)
	// FindActiveByAppointment returns nil, nil when there is no active invoice.
	FindActiveByAppointment(ctx context.Context, appointmentID string) (*models.Invoice, error)
	// ListByAppointment returns every invoice of an appointment, oldest first.
	ListByAppointment(ctx context.Context, appointmentID string) ([]models.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]models.Invoice, error)
	// Deactivate flips isActive to false and touches nothing else, failing
	// with InvoiceSuperseded if it already was.
	Deactivate(ctx context.Context, id string) error
	// UpdateStatus is a compare-and-set on the status of an active invoice.
	UpdateStatus(ctx context.Context, id string, from, to models.InvoiceStatus, at time.Time) (*models.Invoice, error)
	// NextInvoiceNumber allocates the next sequential number for the month of at.
	NextInvoiceNumber(ctx context.Context, at time.Time) (string, error)
}
