package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	schedulerRepo "consultbook/database/repository/scheduler"
	"consultbook/models"
	"consultbook/utils"
)

// memoryRepo is an in-memory SchedulerRepository. WithTransaction serialises
// transactions and slotKey uniqueness mirrors the unique index.
type memoryRepo struct {
	txMu         sync.Mutex
	mu           sync.Mutex
	appointments map[string]models.Appointment
	blocked      map[string]models.BlockedSlot
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		appointments: map[string]models.Appointment{},
		blocked:      map[string]models.BlockedSlot{},
	}
}

func (m *memoryRepo) WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx)
}

func (m *memoryRepo) slotTaken(key, exceptID string) bool {
	for _, a := range m.appointments {
		if a.SlotKey == key && a.ID != exceptID {
			return true
		}
	}
	return false
}

func (m *memoryRepo) InsertAppointment(_ context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slotTaken(appt.SlotKey, appt.ID) {
		return utils.NewEngineError(utils.ErrSlotConflict, "duplicate slot")
	}
	m.appointments[appt.ID] = *appt
	return nil
}

func (m *memoryRepo) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, utils.NewEngineError(utils.ErrNotFound, "appointment %s not found", id)
	}
	return &a, nil
}

func (m *memoryRepo) ListAppointments(_ context.Context, filter schedulerRepo.AppointmentFilter) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Appointment{}
	for _, a := range m.appointments {
		if (filter.UserID == "" || a.UserID == filter.UserID) &&
			(filter.Date == "" || a.Date == filter.Date) &&
			(filter.Status == "" || a.Status == filter.Status) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date+out[i].Timeslot < out[j].Date+out[j].Timeslot })
	return out, nil
}

func (m *memoryRepo) FindActiveInSlot(_ context.Context, date, timeslot string) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.appointments {
		if a.Date == date && a.Timeslot == timeslot && a.Status.HoldsSlot() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryRepo) UpdateAppointmentStatus(_ context.Context, id string, from models.AppointmentStatus, change schedulerRepo.StatusChange) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, utils.NewEngineError(utils.ErrNotFound, "appointment %s not found", id)
	}
	if a.Status != from {
		return nil, utils.NewEngineError(utils.ErrIllegalTransition, "status moved")
	}
	a.Status = change.Status
	a.UpdatedAt = change.At
	if change.Date != "" {
		a.Date = change.Date
	}
	if change.Timeslot != "" {
		a.Timeslot = change.Timeslot
	}
	if change.LateReschedule != nil {
		a.LateReschedule = *change.LateReschedule
	}
	if a.Status.HoldsSlot() {
		key := models.SlotKey(a.Date, a.Timeslot)
		if m.slotTaken(key, a.ID) {
			return nil, utils.NewEngineError(utils.ErrSlotConflict, "duplicate slot")
		}
		a.SlotKey = key
	} else {
		a.SlotKey = ""
	}
	m.appointments[id] = a
	return &a, nil
}

func (m *memoryRepo) FindBlockedSlots(_ context.Context, date string) ([]models.BlockedSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BlockedSlot
	for _, b := range m.blocked {
		if b.Date == date {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memoryRepo) CreateBlockedSlot(_ context.Context, b *models.BlockedSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked[b.ID] = *b
	return nil
}

func (m *memoryRepo) RemoveBlockedSlot(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocked[id]; !ok {
		return utils.NewEngineError(utils.ErrNotFound, "blocked slot %s not found", id)
	}
	delete(m.blocked, id)
	return nil
}

type queuedNotification struct {
	to   string
	kind string
	data map[string]any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []queuedNotification
}

func (n *recordingNotifier) Enqueue(_ context.Context, to, kind string, data map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, queuedNotification{to: to, kind: kind, data: data})
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		out = append(out, s.kind)
	}
	return out
}

type recordingReminders struct {
	scheduled []time.Time
}

func (r *recordingReminders) ScheduleReminder(_ context.Context, _ models.Appointment, fireAt time.Time) error {
	r.scheduled = append(r.scheduled, fireAt)
	return nil
}
