package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PropagateDelay shifts every pending or confirmed appointment after the
// triggering one, within the same session, forward by the overrun. Both the
// displayed time and the cumulative delay grow by exactly the overrun; this
// engine only ever moves appointments later.
//
// Ordering is by slot index, not by displayed time, so an appointment that
// was reassigned or edited is still shifted correctly.
func (s *Service) PropagateDelay(ctx context.Context, doctorID uuid.UUID, date string, triggerID uuid.UUID, overrunMinutes int) error {
	if overrunMinutes <= 0 {
		return nil
	}

	appts, err := s.repo.ListDayAppointments(ctx, doctorID, date)
	if err != nil {
		return fmt.Errorf("list day appointments: %w", err)
	}

	var trigger *Appointment
	for i := range appts {
		if appts[i].ID == triggerID {
			trigger = &appts[i]
			break
		}
	}
	if trigger == nil {
		return fmt.Errorf("delay trigger %s: %w", triggerID, ErrAppointmentNotFound)
	}

	var updates []AppointmentUpdate
	for i := range appts {
		a := &appts[i]
		if a.SessionIndex != trigger.SessionIndex || a.SlotIndex <= trigger.SlotIndex {
			continue
		}
		if a.Status != StatusPending && a.Status != StatusConfirmed {
			continue
		}

		at, err := ParseClock(a.Time)
		if err != nil {
			// Malformed persisted time: skip this record, keep going.
			s.log.Warn().
				Str("appointment_id", a.ID.String()).
				Str("time", a.Time).
				Msg("skipping appointment with unparseable time during delay propagation")
			continue
		}

		newTime := (at + Minutes(overrunMinutes)).String()
		newDelay := a.DelayMinutes + overrunMinutes
		updates = append(updates, AppointmentUpdate{
			ID:           a.ID,
			Time:         &newTime,
			DelayMinutes: &newDelay,
		})
	}

	if err := s.repo.ApplyUpdates(ctx, updates); err != nil {
		return fmt.Errorf("apply delay updates: %w", err)
	}

	s.log.Info().
		Str("doctor_id", doctorID.String()).
		Str("date", date).
		Int("overrun_minutes", overrunMinutes).
		Int("shifted", len(updates)).
		Msg("propagated consultation delay")
	return nil
}
