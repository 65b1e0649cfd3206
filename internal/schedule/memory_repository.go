package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository used by tests and local
// development. It honors the same occupancy and batch semantics as the
// Postgres implementation.
type MemoryRepository struct {
	mu           sync.RWMutex
	doctors      map[uuid.UUID]*Doctor
	appointments map[uuid.UUID]*Appointment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		doctors:      make(map[uuid.UUID]*Doctor),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

// PutDoctor adds or replaces a doctor, for seeding and test setup.
func (r *MemoryRepository) PutDoctor(d Doctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := d
	r.doctors[d.ID] = &copied
}

func (r *MemoryRepository) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *MemoryRepository) ListDoctorsByClinic(_ context.Context, clinicID uuid.UUID) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Doctor
	for _, d := range r.doctors {
		if d.ClinicID == clinicID {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRepository) UpdateDoctorStatus(_ context.Context, id uuid.UUID, status ConsultationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.doctors[id]
	if !ok {
		return ErrDoctorNotFound
	}
	d.ConsultationStatus = status
	d.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *MemoryRepository) ListDayAppointments(_ context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date == date {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SlotIndex < result[j].SlotIndex })
	return result, nil
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.appointments {
		if existing.DoctorID == appt.DoctorID &&
			existing.Date == appt.Date &&
			existing.SlotIndex == appt.SlotIndex &&
			existing.Status.Occupies() {
			return ErrSlotTaken
		}
	}

	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	copied := *appt
	r.appointments[appt.ID] = &copied
	return nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	copied := *a
	return &copied, nil
}

func (r *MemoryRepository) ApplyUpdates(_ context.Context, updates []AppointmentUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate the whole batch before touching anything, so a bad update
	// leaves the store unchanged, same as a rolled-back transaction.
	for _, u := range updates {
		if _, ok := r.appointments[u.ID]; !ok {
			return ErrAppointmentNotFound
		}
	}

	now := time.Now()
	for _, u := range updates {
		a := r.appointments[u.ID]
		if u.Time != nil {
			a.Time = *u.Time
		}
		if u.SlotIndex != nil {
			a.SlotIndex = *u.SlotIndex
		}
		if u.SessionIndex != nil {
			a.SessionIndex = *u.SessionIndex
		}
		if u.DelayMinutes != nil {
			a.DelayMinutes = *u.DelayMinutes
		}
		if u.CutOffTime != nil {
			a.CutOffTime = *u.CutOffTime
		}
		if u.NoShowTime != nil {
			a.NoShowTime = *u.NoShowTime
		}
		a.UpdatedAt = now
	}

	return nil
}
