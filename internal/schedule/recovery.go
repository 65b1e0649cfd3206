package schedule

import (
	"context"
	"fmt"
)

// RecoverVacancy runs when an appointment is cancelled or marked no-show:
// every later pending or confirmed appointment on the date gives back one
// slot-duration of accumulated delay, floored at zero, and its no-show
// deadline is recomputed from the unchanged displayed time plus the
// corrected delay.
//
// The displayed time itself is deliberately left untouched here; only the
// delay bookkeeping and the no-show deadline are corrected.
func (s *Service) RecoverVacancy(ctx context.Context, doc *Doctor, date string, vacatedSlotIndex int) error {
	appts, err := s.repo.ListDayAppointments(ctx, doc.ID, date)
	if err != nil {
		return fmt.Errorf("list day appointments: %w", err)
	}

	var updates []AppointmentUpdate
	for i := range appts {
		a := &appts[i]
		if a.SlotIndex <= vacatedSlotIndex {
			continue
		}
		if a.Status != StatusPending && a.Status != StatusConfirmed {
			continue
		}

		newDelay := a.DelayMinutes - doc.AvgConsultMinutes
		if newDelay < 0 {
			newDelay = 0
		}

		at, err := ParseClock(a.Time)
		if err != nil {
			s.log.Warn().
				Str("appointment_id", a.ID.String()).
				Str("time", a.Time).
				Msg("skipping appointment with unparseable time during vacancy recovery")
			continue
		}
		newNoShow := (at.Add(s.cfg.NoShowGrace) + Minutes(newDelay)).String()

		if newDelay == a.DelayMinutes && newNoShow == a.NoShowTime {
			continue
		}
		updates = append(updates, AppointmentUpdate{
			ID:           a.ID,
			DelayMinutes: &newDelay,
			NoShowTime:   &newNoShow,
		})
	}

	if err := s.repo.ApplyUpdates(ctx, updates); err != nil {
		return fmt.Errorf("apply recovery updates: %w", err)
	}

	s.log.Info().
		Str("doctor_id", doc.ID.String()).
		Str("date", date).
		Int("vacated_slot", vacatedSlotIndex).
		Int("recovered", len(updates)).
		Msg("recovered vacated slot duration")
	return nil
}

// recoverAfter is the shared cancel/no-show tail: vacancy recovery runs
// synchronously but best-effort, then a reassignment pass is queued. Neither
// may fail the status change that triggered them.
func (s *Service) recoverAfter(ctx context.Context, appt *Appointment) {
	doc, err := s.repo.GetDoctor(ctx, appt.DoctorID)
	if err != nil {
		s.log.Warn().Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("vacancy recovery skipped: doctor lookup failed")
		return
	}

	if err := s.RecoverVacancy(ctx, doc, appt.Date, appt.SlotIndex); err != nil {
		s.log.Warn().Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("vacancy recovery failed")
	}

	if s.tasks == nil {
		return
	}
	if err := s.tasks.EnqueueReassign(ctx, appt.DoctorID, appt.Date, appt.SessionIndex); err != nil {
		s.log.Warn().Err(err).
			Str("doctor_id", appt.DoctorID.String()).
			Str("date", appt.Date).
			Msg("failed to enqueue reassignment pass")
	}
}
