package models

import (
	"testing"
	"time"
)

func TestAppointmentStatusPredicates(t *testing.T) {
	tests := []struct {
		status   AppointmentStatus
		holds    bool
		terminal bool
	}{
		{AppointmentPending, true, false},
		{AppointmentConfirmed, true, false},
		{AppointmentRescheduleRequested, false, false},
		{AppointmentDone, false, true},
		{AppointmentNoShow, false, true},
		{AppointmentCancelled, false, true},
	}
	for _, tt := range tests {
		if got := tt.status.HoldsSlot(); got != tt.holds {
			t.Errorf("%s.HoldsSlot() = %v", tt.status, got)
		}
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v", tt.status, got)
		}
	}
}

func TestParseAppointmentStatusRejectsUnknown(t *testing.T) {
	if _, err := ParseAppointmentStatus("archived"); err == nil {
		t.Errorf("expected error")
	}
	if st, err := ParseAppointmentStatus("no-show"); err != nil || st != AppointmentNoShow {
		t.Errorf("got %q, %v", st, err)
	}
}

func TestParseSlot(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	start, err := ParseSlot("2026-10-20", "09:30", loc)
	if err != nil {
		t.Fatalf("ParseSlot: %v", err)
	}
	if start.Hour() != 9 || start.Minute() != 30 || start.Location() != loc {
		t.Errorf("unexpected start %v", start)
	}
	if _, err := ParseSlot("2026-13-01", "09:30", loc); err == nil {
		t.Errorf("expected invalid month error")
	}
	if _, err := ParseSlot("2026-10-20", "9am", loc); err == nil {
		t.Errorf("expected invalid timeslot error")
	}
}

func TestInvoiceStatusTransitions(t *testing.T) {
	if !InvoicePending.CanTransitionTo(InvoicePaid) || !InvoicePending.CanTransitionTo(InvoiceOverdue) {
		t.Errorf("pending should reach paid and overdue")
	}
	if !InvoiceOverdue.CanTransitionTo(InvoicePaid) {
		t.Errorf("overdue should reach paid")
	}
	if InvoicePaid.CanTransitionTo(InvoicePending) || InvoicePaid.CanTransitionTo(InvoiceOverdue) {
		t.Errorf("paid must be terminal")
	}
}

func TestBlockedSlotCovers(t *testing.T) {
	day := BlockedSlot{Date: "2026-10-20"}
	if !day.Covers("09:00") || !day.Covers("16:00") {
		t.Errorf("whole-day block should cover every timeslot")
	}
	one := BlockedSlot{Date: "2026-10-20", Timeslot: "09:00"}
	if !one.Covers("09:00") || one.Covers("10:00") {
		t.Errorf("single block coverage wrong")
	}
}
