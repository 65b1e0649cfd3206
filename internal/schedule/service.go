package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/slot-scheduler/internal/config"
	redisclient "github.com/clinicdesk/slot-scheduler/internal/redis"
)

var (
	ErrNoFreeSlot          = errors.New("no slot available")
	ErrBookingContended    = errors.New("slot is currently being booked, please retry")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrMalformedClockInput = errors.New("unparseable time value")
)

// TaskEnqueuer hands best-effort background work to the task queue. The
// caller never blocks on the work itself, only on the enqueue round-trip,
// and enqueue failures are logged rather than propagated.
type TaskEnqueuer interface {
	EnqueueReassign(ctx context.Context, doctorID uuid.UUID, date string, session int) error
}

// Service owns the six scheduling components: slot calendar generation,
// booking allocation, delay propagation, vacancy recovery, arrived-patient
// reassignment and the doctor status sweep. Each mutating operation reads a
// snapshot of one doctor's day, computes over it, and writes one atomic
// batch.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	clock  Clock
	tasks  TaskEnqueuer
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, clock Clock, log zerolog.Logger) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		clock:  clock,
		log:    log.With().Str("component", "schedule").Logger(),
	}
}

// SetTaskEnqueuer wires the background task queue. Without one, vacancy
// events simply skip the reassignment pass.
func (s *Service) SetTaskEnqueuer(t TaskEnqueuer) {
	s.tasks = t
}

// SlotView is one calendar entry with its live occupancy, for the booking
// screen.
type SlotView struct {
	Session   int    `json:"session"`
	Index     int    `json:"slot_index"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// DaySchedule generates the doctor's slot calendar for a date and marks
// which slots are currently held by a live appointment.
func (s *Service) DaySchedule(ctx context.Context, doctorID uuid.UUID, date string) ([]SlotView, error) {
	doc, err := s.repo.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	cal, err := s.calendarFor(doc, date)
	if err != nil {
		return nil, err
	}

	appts, err := s.repo.ListDayAppointments(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	occupied := occupiedSlots(appts)

	views := make([]SlotView, 0, len(cal.Slots))
	for _, slot := range cal.Slots {
		views = append(views, SlotView{
			Session:   slot.Session,
			Index:     slot.Index,
			Time:      slot.Start.String(),
			Available: !occupied[slot.Index],
		})
	}
	return views, nil
}

// GetDoctor returns one doctor's profile including the live in/out
// consultation status maintained by the status sweep.
func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetDoctor(ctx, id)
}

// DayQueue lists the doctor's appointments for a date in token-board order.
func (s *Service) DayQueue(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	appts, err := s.repo.ListDayAppointments(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	return appts, nil
}

// calendarFor builds the slot calendar and logs, once, any template entries
// that had to be skipped because their persisted clock strings would not
// parse. Malformed records never abort the whole computation.
func (s *Service) calendarFor(doc *Doctor, date string) (*SlotCalendar, error) {
	cal, err := BuildSlotCalendar(doc, date)
	if err != nil {
		return nil, fmt.Errorf("build slot calendar: %w", err)
	}
	for _, skipped := range cal.Skipped {
		s.log.Warn().
			Str("doctor_id", doc.ID.String()).
			Str("date", date).
			Str("entry", skipped).
			Msg("skipping malformed availability entry")
	}
	return cal, nil
}

func occupiedSlots(appts []Appointment) map[int]bool {
	occupied := make(map[int]bool, len(appts))
	for _, a := range appts {
		if a.Status.Occupies() {
			occupied[a.SlotIndex] = true
		}
	}
	return occupied
}
