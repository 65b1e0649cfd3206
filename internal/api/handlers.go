package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	redisclient "github.com/clinicdesk/slot-scheduler/internal/redis"
	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

func bookAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clinicID, err := uuid.Parse(req.ClinicID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		channel, ok := parseChannel(req.BookedVia)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_booked_via", "booked_via must be online, walk_in or phone")
			return
		}
		if req.PatientName == "" {
			writeError(w, http.StatusBadRequest, "missing_patient_name", "patient_name is required")
			return
		}

		appt, err := svc.BookAppointment(r.Context(), schedule.BookingRequest{
			ClinicID:    clinicID,
			DoctorID:    doctorID,
			Date:        req.Date,
			PatientName: req.PatientName,
			Channel:     channel,
		})
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func confirmAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.ConfirmAppointment(r.Context(), id)
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeConsultationHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var req CompleteConsultationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		endedAt, err := schedule.ParseClock(req.EndedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_ended_at", "ended_at must be hh:mm AM/PM or HH:mm")
			return
		}

		appt, err := svc.CompleteConsultation(r.Context(), id, endedAt)
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), id)
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func markNoShowHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.MarkNoShow(r.Context(), id)
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func doctorHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		doc, err := svc.GetDoctor(r.Context(), id)
		if err != nil {
			handleLookupError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDoctorResponse(doc))
	}
}

func daySlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, date, ok := doctorDayParams(w, r)
		if !ok {
			return
		}

		slots, err := svc.DaySchedule(r.Context(), doctorID, date)
		if err != nil {
			handleLookupError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, slots)
	}
}

func dayQueueHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, date, ok := doctorDayParams(w, r)
		if !ok {
			return
		}

		appts, err := svc.DayQueue(r.Context(), doctorID, date)
		if err != nil {
			handleLookupError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Param helpers

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func doctorDayParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
		return uuid.Nil, "", false
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
		return uuid.Nil, "", false
	}

	return doctorID, date, true
}

func parseChannel(s string) (schedule.BookingChannel, bool) {
	switch schedule.BookingChannel(s) {
	case schedule.ViaOnline, schedule.ViaWalkIn, schedule.ViaPhone:
		return schedule.BookingChannel(s), true
	default:
		return "", false
	}
}

// Error mapping

func handleBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, schedule.ErrMalformedClockInput):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, schedule.ErrNoFreeSlot):
		writeError(w, http.StatusConflict, "no_slot_available", "no slot available")
	case errors.Is(err, schedule.ErrSlotTaken),
		errors.Is(err, schedule.ErrBookingContended),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_no_longer_available", "slot no longer available, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, schedule.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
