package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ConfirmAppointment marks an advance booking's patient as arrived,
// moving it from pending to confirmed.
func (s *Service) ConfirmAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.UpdateAppointmentStatus(ctx, id, StatusPending, StatusConfirmed)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, s.transitionError(ctx, id)
		}
		return nil, fmt.Errorf("confirm appointment: %w", err)
	}
	return appt, nil
}

// CompleteConsultation closes out a consultation. When the actual end time
// runs past the scheduled slot plus the doctor's average duration, the
// overrun is propagated to the rest of the session. Propagation is
// best-effort: a failure there is logged and never rolls back the
// completion itself.
func (s *Service) CompleteConsultation(ctx context.Context, id uuid.UUID, endedAt Minutes) (*Appointment, error) {
	appt, err := s.repo.UpdateAppointmentStatus(ctx, id, StatusConfirmed, StatusCompleted)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, s.transitionError(ctx, id)
		}
		return nil, fmt.Errorf("complete consultation: %w", err)
	}

	overrun, ok := s.overrunMinutes(ctx, appt, endedAt)
	if ok && overrun > 0 {
		if err := s.PropagateDelay(ctx, appt.DoctorID, appt.Date, appt.ID, overrun); err != nil {
			s.log.Warn().Err(err).
				Str("appointment_id", appt.ID.String()).
				Int("overrun_minutes", overrun).
				Msg("delay propagation failed")
		}
	}

	return appt, nil
}

// CancelAppointment cancels a pending or confirmed appointment, then runs
// the vacancy recovery tail.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.UpdateAppointmentStatus(ctx, id, StatusPending, StatusCancelled)
	if errors.Is(err, ErrAppointmentNotFound) {
		appt, err = s.repo.UpdateAppointmentStatus(ctx, id, StatusConfirmed, StatusCancelled)
	}
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, s.transitionError(ctx, id)
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.recoverAfter(ctx, appt)
	return appt, nil
}

// MarkNoShow abandons a still-pending appointment past its no-show
// deadline. Only pending appointments can no-show; an arrived (confirmed)
// patient is cancelled instead.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.UpdateAppointmentStatus(ctx, id, StatusPending, StatusNoShow)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, s.transitionError(ctx, id)
		}
		return nil, fmt.Errorf("mark no-show: %w", err)
	}

	s.recoverAfter(ctx, appt)
	return appt, nil
}

// overrunMinutes computes how far the consultation ran past its scheduled
// end. Malformed persisted times make this a no-op rather than an error.
func (s *Service) overrunMinutes(ctx context.Context, appt *Appointment, endedAt Minutes) (int, bool) {
	scheduled, err := ParseClock(appt.Time)
	if err != nil {
		s.log.Warn().
			Str("appointment_id", appt.ID.String()).
			Str("time", appt.Time).
			Msg("cannot compute overrun: unparseable scheduled time")
		return 0, false
	}

	doc, err := s.repo.GetDoctor(ctx, appt.DoctorID)
	if err != nil {
		s.log.Warn().Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("cannot compute overrun: doctor lookup failed")
		return 0, false
	}

	return int(endedAt-scheduled) - doc.AvgConsultMinutes, true
}

// transitionError distinguishes "no such appointment" from "exists but in
// the wrong state" after a compare-and-set miss.
func (s *Service) transitionError(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetAppointment(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}
