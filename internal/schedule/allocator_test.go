package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookAppointment_FillsSlotsInOrder(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	req := BookingRequest{
		ClinicID:    doc.ClinicID,
		DoctorID:    doc.ID,
		Date:        testDate,
		PatientName: "Walk-in",
		Channel:     ViaWalkIn,
	}

	var times []string
	for i := 0; i < 3; i++ {
		appt, err := svc.BookAppointment(ctx, req)
		require.NoError(t, err)
		times = append(times, appt.Time)
		assert.Equal(t, i, appt.SlotIndex)
		assert.Equal(t, i+1, appt.TokenNumber)
		assert.Equal(t, StatusConfirmed, appt.Status)
	}
	assert.Equal(t, []string{"09:00 AM", "09:20 AM", "09:40 AM"}, times)

	// The day is full now.
	_, err := svc.BookAppointment(ctx, req)
	assert.ErrorIs(t, err, ErrNoFreeSlot)
}

func TestBookAppointment_ComputesCutOffAndNoShow(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)

	appt, err := svc.BookAppointment(context.Background(), BookingRequest{
		ClinicID:    doc.ClinicID,
		DoctorID:    doc.ID,
		Date:        testDate,
		PatientName: "First",
		Channel:     ViaWalkIn,
	})
	require.NoError(t, err)

	assert.Equal(t, "09:00 AM", appt.Time)
	assert.Equal(t, "08:45 AM", appt.CutOffTime)
	assert.Equal(t, "09:15 AM", appt.NoShowTime)
	assert.Equal(t, 0, appt.DelayMinutes)
	assert.Equal(t, "W1", appt.Token())
}

func TestBookAppointment_OnlineExclusionWindow(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)

	// 08:30 now: the one-hour window bars online booking of 09:00 and
	// 09:20 today, leaving 09:40.
	clock := FixedClock{Instant: time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)}
	svc := newTestService(repo, clock)

	appt, err := svc.BookAppointment(context.Background(), BookingRequest{
		ClinicID:    doc.ClinicID,
		DoctorID:    doc.ID,
		Date:        testDate,
		PatientName: "Online",
		Channel:     ViaOnline,
	})
	require.NoError(t, err)
	assert.Equal(t, "09:40 AM", appt.Time)
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, "A1", appt.Token())
}

func TestBookAppointment_WalkInIgnoresExclusionWindow(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)

	clock := FixedClock{Instant: time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)}
	svc := newTestService(repo, clock)

	appt, err := svc.BookAppointment(context.Background(), BookingRequest{
		ClinicID:    doc.ClinicID,
		DoctorID:    doc.ID,
		Date:        testDate,
		PatientName: "Walk-in",
		Channel:     ViaWalkIn,
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00 AM", appt.Time)
}

func TestBookAppointment_ExclusionWindowOnlyAppliesToday(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)

	// Booking next Monday: the window never applies to future dates.
	clock := FixedClock{Instant: time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)}
	svc := newTestService(repo, clock)

	appt, err := svc.BookAppointment(context.Background(), BookingRequest{
		ClinicID:    doc.ClinicID,
		DoctorID:    doc.ID,
		Date:        "2024-01-22",
		PatientName: "Online",
		Channel:     ViaOnline,
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00 AM", appt.Time)
}

func TestBookAppointment_CancelledSlotIsRebookable(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	req := BookingRequest{
		ClinicID:    doc.ClinicID,
		DoctorID:    doc.ID,
		Date:        testDate,
		PatientName: "Walk-in",
		Channel:     ViaWalkIn,
	}

	first, err := svc.BookAppointment(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 0, first.SlotIndex)

	_, err = svc.CancelAppointment(ctx, first.ID)
	require.NoError(t, err)

	second, err := svc.BookAppointment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.SlotIndex)
	// Tokens are never reissued, even when the slot is.
	assert.Equal(t, 2, second.TokenNumber)
}

func TestBookAppointment_ReusesNothingWhileOccupied(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	seedAppointment(repo, &doc, 0, 0, "09:00 AM", StatusCompleted, ViaWalkIn)

	appt, err := svc.BookAppointment(ctx, BookingRequest{
		ClinicID:    doc.ClinicID,
		DoctorID:    doc.ID,
		Date:        testDate,
		PatientName: "Walk-in",
		Channel:     ViaWalkIn,
	})
	require.NoError(t, err)
	// Completed still occupies its slot.
	assert.Equal(t, 1, appt.SlotIndex)
}

func TestBookAppointment_UnknownDoctor(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo, nil)

	_, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID:    testDoctor().ID,
		Date:        testDate,
		PatientName: "Nobody",
		Channel:     ViaWalkIn,
	})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestBookAppointment_MalformedDate(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)

	_, err := svc.BookAppointment(context.Background(), BookingRequest{
		ClinicID:    doc.ClinicID,
		DoctorID:    doc.ID,
		Date:        "Jan 15",
		PatientName: "Walk-in",
		Channel:     ViaWalkIn,
	})
	assert.ErrorIs(t, err, ErrMalformedClockInput)
}
