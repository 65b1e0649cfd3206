package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var template, leaves []byte

	err := row.Scan(
		&d.ID,
		&d.ClinicID,
		&d.Name,
		&d.AvgConsultMinutes,
		&template,
		&leaves,
		&d.ConsultationStatus,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	if len(template) > 0 {
		if err := json.Unmarshal(template, &d.Template); err != nil {
			return nil, fmt.Errorf("decode week template for doctor %s: %w", d.ID, err)
		}
	}
	if len(leaves) > 0 {
		if err := json.Unmarshal(leaves, &d.Leaves); err != nil {
			return nil, fmt.Errorf("decode leave overrides for doctor %s: %w", d.ID, err)
		}
	}

	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time

	err := row.Scan(
		&a.ID,
		&a.ClinicID,
		&a.DoctorID,
		&a.PatientName,
		&date,
		&a.SessionIndex,
		&a.SlotIndex,
		&a.TokenNumber,
		&a.Time,
		&a.Status,
		&a.BookedVia,
		&a.DelayMinutes,
		&a.CutOffTime,
		&a.NoShowTime,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = date.Format(DateLayout)
	return &a, nil
}

const appointmentColumns = `
	id, clinic_id, doctor_id, patient_name, date, session_index, slot_index,
	token_number, display_time, status, booked_via, delay_minutes,
	cut_off_time, no_show_time, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, clinic_id, name, avg_consult_minutes, week_template,
		       leave_overrides, consultation_status, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctorsByClinic(ctx context.Context, clinicID uuid.UUID) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, clinic_id, name, avg_consult_minutes, week_template,
		       leave_overrides, consultation_status, created_at, updated_at
		FROM doctors
		WHERE clinic_id = $1
		ORDER BY name
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateDoctorStatus(ctx context.Context, id uuid.UUID, status ConsultationStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE doctors
		SET consultation_status = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update doctor status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListDayAppointments(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND date = $2
		ORDER BY slot_index
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) error {
	// The partial unique index on (doctor_id, date, slot_index) over live
	// statuses is the last line of defense against double booking; the
	// redis day lock narrows the race, this closes it.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, clinic_id, doctor_id, patient_name, date, session_index,
			slot_index, token_number, display_time, status, booked_via,
			delay_minutes, cut_off_time, no_show_time, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		RETURNING `+appointmentColumns,
		appt.ID, appt.ClinicID, appt.DoctorID, appt.PatientName, appt.Date,
		appt.SessionIndex, appt.SlotIndex, appt.TokenNumber, appt.Time,
		appt.Status, appt.BookedVia, appt.DelayMinutes, appt.CutOffTime,
		appt.NoShowTime,
	)

	saved, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSlotTaken
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	*appt = *saved
	return nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) ApplyUpdates(ctx context.Context, updates []AppointmentUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, u := range updates {
		tag, err := tx.Exec(ctx, `
			UPDATE appointments
			SET display_time  = COALESCE($2, display_time),
			    slot_index    = COALESCE($3, slot_index),
			    session_index = COALESCE($4, session_index),
			    delay_minutes = COALESCE($5, delay_minutes),
			    cut_off_time  = COALESCE($6, cut_off_time),
			    no_show_time  = COALESCE($7, no_show_time),
			    updated_at    = now()
			WHERE id = $1
		`, u.ID, u.Time, u.SlotIndex, u.SessionIndex, u.DelayMinutes, u.CutOffTime, u.NoShowTime)
		if err != nil {
			return fmt.Errorf("update appointment %s: %w", u.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update appointment %s: %w", u.ID, ErrAppointmentNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update batch: %w", err)
	}

	return nil
}
