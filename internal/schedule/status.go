package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UpdateDoctorStatuses sweeps one clinic's doctors and flips each live
// in/out consultation flag according to whether now falls inside any of
// today's session windows. Only doctors whose computed status differs from
// the stored one are written. Returns the number of doctors changed.
//
// This sweep owns Doctor.ConsultationStatus exclusively; nothing else
// writes it, so each run is idempotent and safe to repeat.
func (s *Service) UpdateDoctorStatuses(ctx context.Context, clinicID uuid.UUID) (int, error) {
	doctors, err := s.repo.ListDoctorsByClinic(ctx, clinicID)
	if err != nil {
		return 0, fmt.Errorf("list clinic doctors: %w", err)
	}
	if len(doctors) == 0 {
		return 0, nil
	}

	now := s.clock.Now()
	nowMin := MinutesOfDay(now)

	changed := 0
	for i := range doctors {
		doc := &doctors[i]

		desired := ConsultOut
		if s.inSessionNow(doc, now.Weekday(), nowMin) {
			desired = ConsultIn
		}
		if desired == doc.ConsultationStatus {
			continue
		}

		if err := s.repo.UpdateDoctorStatus(ctx, doc.ID, desired); err != nil {
			s.log.Warn().Err(err).
				Str("doctor_id", doc.ID.String()).
				Msg("doctor status write failed")
			continue
		}
		changed++
	}

	return changed, nil
}

func (s *Service) inSessionNow(doc *Doctor, weekday time.Weekday, nowMin Minutes) bool {
	day, ok := doc.Template.Day(weekday)
	if !ok {
		return false
	}

	for _, window := range day.Sessions {
		start, err := ParseClock(window.Start)
		if err != nil {
			s.log.Warn().
				Str("doctor_id", doc.ID.String()).
				Str("start", window.Start).
				Msg("skipping malformed session window during status sweep")
			continue
		}
		end, err := ParseClock(window.End)
		if err != nil {
			s.log.Warn().
				Str("doctor_id", doc.ID.String()).
				Str("end", window.End).
				Msg("skipping malformed session window during status sweep")
			continue
		}
		if start <= nowMin && nowMin < end {
			return true
		}
	}
	return false
}
