package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-day key used throughout: appointment dates,
// leave override keys, lock keys.
const DateLayout = "2006-01-02"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Occupies reports whether an appointment in this status holds its slot.
// Cancelled and no-show appointments free the slot; everything else keeps it.
func (s AppointmentStatus) Occupies() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type BookingChannel string

const (
	ViaOnline BookingChannel = "online"
	ViaWalkIn BookingChannel = "walk_in"
	ViaPhone  BookingChannel = "phone"
)

type ConsultationStatus string

const (
	ConsultIn  ConsultationStatus = "in"
	ConsultOut ConsultationStatus = "out"
)

// TimeRange is a persisted availability window. Start and End are legacy
// time strings in either "hh:mm AM/PM" or "HH:mm" form; they are normalized
// with ParseClock at the point of use.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DayTemplate holds one weekday's session windows. A doctor may run several
// sessions per day (morning and evening, typically).
type DayTemplate struct {
	Sessions []TimeRange `json:"sessions"`
}

// WeekTemplate maps lowercase weekday names ("monday", ...) to day templates.
type WeekTemplate map[string]DayTemplate

// Day looks up the template for the weekday of the given wall-clock day.
func (w WeekTemplate) Day(weekday time.Weekday) (DayTemplate, bool) {
	day, ok := w[weekdayKey(weekday)]
	return day, ok
}

func weekdayKey(d time.Weekday) string {
	switch d {
	case time.Sunday:
		return "sunday"
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	default:
		return "saturday"
	}
}

// LeaveOverrides maps ISO dates to blackout intervals for that exact date.
// A present key with an empty interval list blocks nothing.
type LeaveOverrides map[string][]TimeRange

type Doctor struct {
	ID                 uuid.UUID
	ClinicID           uuid.UUID
	Name               string
	AvgConsultMinutes  int
	Template           WeekTemplate
	Leaves             LeaveOverrides
	ConsultationStatus ConsultationStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Appointment struct {
	ID           uuid.UUID
	ClinicID     uuid.UUID
	DoctorID     uuid.UUID
	PatientName  string
	Date         string // DateLayout
	SessionIndex int
	SlotIndex    int // global 0-based ordinal across the day's sessions
	TokenNumber  int
	Time         string // displayed slot start, legacy clock string
	Status       AppointmentStatus
	BookedVia    BookingChannel
	DelayMinutes int    // cumulative minutes added by delay propagation
	CutOffTime   string // online booking barred after this
	NoShowTime   string // pending appointment abandoned after this
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Token renders the patient-facing queue token: W-prefixed for walk-ins,
// A-prefixed for advance (online or phone) bookings.
func (a *Appointment) Token() string {
	prefix := "A"
	if a.BookedVia == ViaWalkIn {
		prefix = "W"
	}
	return fmt.Sprintf("%s%d", prefix, a.TokenNumber)
}

// Slot is one derived bookable time unit. Slots are never persisted; they
// are regenerated from the doctor's template whenever needed, and Index is
// the stable join key to Appointment.SlotIndex.
type Slot struct {
	Session int
	Index   int
	Start   Minutes
}

// AppointmentUpdate is one record's worth of a batch mutation. Nil fields
// are left untouched.
type AppointmentUpdate struct {
	ID           uuid.UUID
	Time         *string
	SlotIndex    *int
	SessionIndex *int
	DelayMinutes *int
	CutOffTime   *string
	NoShowTime   *string
}
