package models

import "time"

// Notification types written to the queue.
const (
	NotifyAppointmentConfirmed = "appointment_confirmed"
	NotifyAppointmentReminder  = "appointment_reminder"
	NotifyInvoiceCreated       = "invoice_created"
	NotifyInvoiceReissued      = "invoice_reissued"
)

const NotificationPending = "pending"

// NotificationEntry is a queued outbound message. Delivery belongs to the notifier.
type NotificationEntry struct {
	ID        string         `bson:"id" json:"id"`
	To        string         `bson:"to" json:"to"`
	Type      string         `bson:"type" json:"type"`
	Data      map[string]any `bson:"data" json:"data"`
	Status    string         `bson:"status" json:"status"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
}

// ReminderPayload is the asynq payload of a session reminder task.
type ReminderPayload struct {
	AppointmentID string `json:"appointmentId"`
	Date          string `json:"date"`
	Timeslot      string `json:"timeslot"`
}
