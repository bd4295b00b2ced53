package models

import (
	"fmt"
	"time"
)

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoicePending: {InvoicePaid, InvoiceOverdue},
	InvoiceOverdue: {InvoicePaid},
}

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch InvoiceStatus(s) {
	case InvoicePending, InvoicePaid, InvoiceOverdue:
		return InvoiceStatus(s), nil
	}
	return "", fmt.Errorf("unknown invoice status %q", s)
}

// CanTransitionTo reports whether next is reachable from s. Paid is terminal.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Line item codes.
const (
	LineSessionRate       = "session_rate"
	LineNoShowPenalty     = "no_show_penalty"
	LineLateRescheduleFee = "late_reschedule_fee"
	LineOverride          = "override"
)

type LineItem struct {
	Code   string  `bson:"code" json:"code"`
	Label  string  `bson:"label" json:"label"`
	Amount float64 `bson:"amount" json:"amount"`
}

// Invoice is immutable once written except for IsActive (flipped on the
// predecessor during a reissue) and Status (driven by payment collaborators).
type Invoice struct {
	ID            string        `bson:"id" json:"id"`
	AppointmentID string        `bson:"appointmentId" json:"appointmentId"`
	UserID        string        `bson:"userId" json:"userId"`
	ClientName    string        `bson:"clientName" json:"clientName"`
	ClientEmail   string        `bson:"clientEmail" json:"clientEmail"`
	Amount        float64       `bson:"amount" json:"amount"`
	Status        InvoiceStatus `bson:"status" json:"status"`
	InvoiceNumber string        `bson:"invoiceNumber" json:"invoiceNumber"`
	IsActive      bool          `bson:"isActive" json:"isActive"`
	IsReissued    bool          `bson:"isReissued" json:"isReissued"`

	// Reissue chain; set only on a reissued invoice.
	OriginalAmount   *float64 `bson:"originalAmount,omitempty" json:"originalAmount,omitempty"`
	CreditNoteNumber string   `bson:"creditNoteNumber,omitempty" json:"creditNoteNumber,omitempty"`
	Supersedes       string   `bson:"supersedes,omitempty" json:"supersedes,omitempty"`
	ReissueReason    string   `bson:"reissueReason,omitempty" json:"reissueReason,omitempty"`

	Description string          `bson:"description,omitempty" json:"description,omitempty"`
	SessionType AppointmentType `bson:"sessionType" json:"sessionType"`
	SessionDate string          `bson:"sessionDate" json:"sessionDate"`
	LineItems   []LineItem      `bson:"lineItems" json:"lineItems"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt" json:"updatedAt"`
}
