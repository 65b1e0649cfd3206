package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken means another booking claimed the slot between snapshot
	// and write. The allocator retries a bounded number of times and then
	// surfaces it as "slot no longer available, please retry".
	ErrSlotTaken = errors.New("slot no longer available")
)

// Repository contains all store interactions needed by the scheduler.
//
// Appointments are stored flat and filterable by doctor and date; doctors
// carry their weekly template and leave overrides as nested structures.
// CreateAppointment must enforce slot occupancy atomically (the one place
// where last-writer-wins is not acceptable); ApplyUpdates must apply the
// whole batch or none of it.
type Repository interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctorsByClinic(ctx context.Context, clinicID uuid.UUID) ([]Doctor, error)
	UpdateDoctorStatus(ctx context.Context, id uuid.UUID, status ConsultationStatus) error

	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListDayAppointments(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error)

	// CreateAppointment inserts the appointment, failing with ErrSlotTaken
	// if a non-cancelled, non-no-show appointment already holds the same
	// (doctor, date, slot index).
	CreateAppointment(ctx context.Context, appt *Appointment) error

	// UpdateAppointmentStatus transitions from one status to another,
	// failing with ErrAppointmentNotFound when the appointment is missing
	// or no longer in the expected state.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// ApplyUpdates applies a batch of field updates in one transaction.
	ApplyUpdates(ctx context.Context, updates []AppointmentUpdate) error
}
