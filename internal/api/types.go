package api

import (
	"github.com/google/uuid"

	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

type BookAppointmentRequest struct {
	ClinicID    string `json:"clinic_id"`
	DoctorID    string `json:"doctor_id"`
	Date        string `json:"date"` // 2006-01-02
	PatientName string `json:"patient_name"`
	BookedVia   string `json:"booked_via"` // online, walk_in, phone
}

type CompleteConsultationRequest struct {
	EndedAt string `json:"ended_at"` // "hh:mm AM/PM" or "HH:mm"
}

type AppointmentResponse struct {
	ID           uuid.UUID `json:"id"`
	Token        string    `json:"token"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	SessionIndex int       `json:"session_index"`
	SlotIndex    int       `json:"slot_index"`
	Status       string    `json:"status"`
	BookedVia    string    `json:"booked_via"`
	DelayMinutes int       `json:"delay_minutes"`
	CutOffTime   string    `json:"cut_off_time"`
	NoShowTime   string    `json:"no_show_time"`
}

func toAppointmentResponse(a *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		Token:        a.Token(),
		DoctorID:     a.DoctorID,
		Date:         a.Date,
		Time:         a.Time,
		SessionIndex: a.SessionIndex,
		SlotIndex:    a.SlotIndex,
		Status:       string(a.Status),
		BookedVia:    string(a.BookedVia),
		DelayMinutes: a.DelayMinutes,
		CutOffTime:   a.CutOffTime,
		NoShowTime:   a.NoShowTime,
	}
}

type DoctorResponse struct {
	ID                 uuid.UUID `json:"id"`
	ClinicID           uuid.UUID `json:"clinic_id"`
	Name               string    `json:"name"`
	AvgConsultMinutes  int       `json:"avg_consult_minutes"`
	ConsultationStatus string    `json:"consultation_status"`
}

func toDoctorResponse(d *schedule.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:                 d.ID,
		ClinicID:           d.ClinicID,
		Name:               d.Name,
		AvgConsultMinutes:  d.AvgConsultMinutes,
		ConsultationStatus: string(d.ConsultationStatus),
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
