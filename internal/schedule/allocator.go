package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/clinicdesk/slot-scheduler/internal/redis"
)

// BookingRequest asks for the next free slot on a doctor's day.
type BookingRequest struct {
	ClinicID    uuid.UUID
	DoctorID    uuid.UUID
	Date        string // DateLayout
	PatientName string
	Channel     BookingChannel
}

// BookAppointment finds the earliest free slot on the requested date and
// creates the appointment in it. Online and phone bookings are barred from
// slots starting inside the exclusion window from now; walk-ins are not.
//
// The slot-occupancy check and the insert run under the doctor-day lock,
// and the store enforces occupancy again on write, so two concurrent
// bookings can never land on the same slot. Losing the race is retried a
// bounded number of times before surfacing ErrBookingContended.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if _, err := time.Parse(DateLayout, req.Date); err != nil {
		return nil, fmt.Errorf("%w: date %q", ErrMalformedClockInput, req.Date)
	}

	doc, err := s.repo.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	cal, err := s.calendarFor(doc, req.Date)
	if err != nil {
		return nil, err
	}
	if len(cal.Slots) == 0 {
		return nil, ErrNoFreeSlot
	}

	attempts := s.cfg.BookingRetries
	if attempts < 1 {
		attempts = 1
	}

	var booked *Appointment
	for attempt := 0; attempt < attempts; attempt++ {
		err = s.locker.WithDoctorDayLock(ctx, req.DoctorID, req.Date, func(lockCtx context.Context) error {
			appt, allocErr := s.allocate(lockCtx, doc, cal, req)
			if allocErr != nil {
				return allocErr
			}
			booked = appt
			return nil
		})
		if err == nil {
			return booked, nil
		}
		if errors.Is(err, ErrSlotTaken) || errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.log.Debug().
				Str("doctor_id", req.DoctorID.String()).
				Str("date", req.Date).
				Int("attempt", attempt+1).
				Err(err).
				Msg("lost slot race, retrying")
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("%w: %v", ErrBookingContended, err)
}

// allocate runs inside the doctor-day critical section: snapshot the day,
// pick the earliest eligible free slot, and write the appointment.
func (s *Service) allocate(ctx context.Context, doc *Doctor, cal *SlotCalendar, req BookingRequest) (*Appointment, error) {
	appts, err := s.repo.ListDayAppointments(ctx, req.DoctorID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	occupied := occupiedSlots(appts)

	var chosen *Slot
	for i := range cal.Slots {
		slot := cal.Slots[i]
		if occupied[slot.Index] {
			continue
		}
		if req.Channel != ViaWalkIn && s.insideExclusionWindow(req.Date, slot.Start) {
			continue
		}
		chosen = &slot
		break
	}
	if chosen == nil {
		return nil, ErrNoFreeSlot
	}

	appt := &Appointment{
		ID:           uuid.New(),
		ClinicID:     req.ClinicID,
		DoctorID:     req.DoctorID,
		PatientName:  req.PatientName,
		Date:         req.Date,
		SessionIndex: chosen.Session,
		SlotIndex:    chosen.Index,
		TokenNumber:  nextToken(appts),
		Time:         chosen.Start.String(),
		Status:       initialStatus(req.Channel),
		BookedVia:    req.Channel,
		DelayMinutes: 0,
		CutOffTime:   chosen.Start.Add(-s.cfg.CutOffLead).String(),
		NoShowTime:   chosen.Start.Add(s.cfg.NoShowGrace).String(),
	}

	if err := s.repo.CreateAppointment(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// insideExclusionWindow reports whether a slot on the given date starts too
// close to now for an advance booking. Only today's slots can be inside the
// window; future dates are always bookable.
func (s *Service) insideExclusionWindow(date string, start Minutes) bool {
	now := s.clock.Now()
	if date != now.Format(DateLayout) {
		return false
	}
	return start < MinutesOfDay(now).Add(s.cfg.OnlineExclusion)
}

// initialStatus: walk-ins are present at the desk, so they start confirmed;
// advance bookings start pending until the patient arrives.
func initialStatus(channel BookingChannel) AppointmentStatus {
	if channel == ViaWalkIn {
		return StatusConfirmed
	}
	return StatusPending
}

// nextToken continues the doctor's token sequence for the day. Cancelled
// and no-show appointments keep their numbers; tokens are never reissued.
func nextToken(appts []Appointment) int {
	max := 0
	for _, a := range appts {
		if a.TokenNumber > max {
			max = a.TokenNumber
		}
	}
	return max + 1
}
