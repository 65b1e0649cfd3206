package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/slot-scheduler/internal/config"
)

// 2024-01-15 was a Monday; most tests run "today" at 08:00 that morning.
const testDate = "2024-01-15"

var testInstant = time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

// passLocker runs the critical section without any locking; the memory
// repository's own occupancy check stands in for the unique index.
type passLocker struct{}

func (passLocker) WithDoctorDayLock(ctx context.Context, _ uuid.UUID, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

func testConfig() config.Config {
	return config.Config{
		CutOffLead:      15 * time.Minute,
		NoShowGrace:     15 * time.Minute,
		OnlineExclusion: time.Hour,
		BookingRetries:  3,
	}
}

func newTestService(repo Repository, clock Clock) *Service {
	if clock == nil {
		clock = FixedClock{Instant: testInstant}
	}
	return NewService(repo, passLocker{}, testConfig(), clock, zerolog.Nop())
}

// testDoctor runs a single Monday morning session 09:00-10:00 with
// 20-minute consultations: slots 09:00, 09:20, 09:40.
func testDoctor() Doctor {
	return Doctor{
		ID:                uuid.New(),
		ClinicID:          uuid.New(),
		Name:              "Dr. Asha Menon",
		AvgConsultMinutes: 20,
		Template: WeekTemplate{
			"monday": {Sessions: []TimeRange{{Start: "09:00 AM", End: "10:00 AM"}}},
		},
		Leaves:             LeaveOverrides{},
		ConsultationStatus: ConsultOut,
	}
}

// twoSessionDoctor adds an evening session 05:00-06:00 PM in the 24-hour
// legacy format.
func twoSessionDoctor() Doctor {
	doc := testDoctor()
	doc.Template["monday"] = DayTemplate{Sessions: []TimeRange{
		{Start: "09:00 AM", End: "10:00 AM"},
		{Start: "17:00", End: "18:00"},
	}}
	return doc
}

// seedAppointment writes an appointment straight into the repository,
// bypassing the allocator, for engine tests that need a prepared day.
func seedAppointment(repo Repository, doc *Doctor, slot, session int, start string, status AppointmentStatus, via BookingChannel) Appointment {
	startMin, err := ParseClock(start)
	if err != nil {
		panic(err)
	}

	appt := Appointment{
		ID:           uuid.New(),
		ClinicID:     doc.ClinicID,
		DoctorID:     doc.ID,
		PatientName:  "Patient " + start,
		Date:         testDate,
		SessionIndex: session,
		SlotIndex:    slot,
		TokenNumber:  slot + 1,
		Time:         start,
		Status:       status,
		BookedVia:    via,
		CutOffTime:   startMin.Add(-15 * time.Minute).String(),
		NoShowTime:   startMin.Add(15 * time.Minute).String(),
	}
	if err := repo.CreateAppointment(context.Background(), &appt); err != nil {
		panic(err)
	}
	return appt
}
