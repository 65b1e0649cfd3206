package schedule

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enqueueCall struct {
	doctorID uuid.UUID
	date     string
	session  int
}

// recordingEnqueuer captures reassignment enqueues instead of talking to a
// real task queue.
type recordingEnqueuer struct {
	calls []enqueueCall
}

func (r *recordingEnqueuer) EnqueueReassign(_ context.Context, doctorID uuid.UUID, date string, session int) error {
	r.calls = append(r.calls, enqueueCall{doctorID: doctorID, date: date, session: session})
	return nil
}

func TestConfirmAppointment(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	appt := seedAppointment(repo, &doc, 0, 0, "09:00 AM", StatusPending, ViaOnline)

	confirmed, err := svc.ConfirmAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	// A second confirm finds the appointment in the wrong state.
	_, err = svc.ConfirmAppointment(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.ConfirmAppointment(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCompleteConsultation_PropagatesOverrun(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	current := seedAppointment(repo, &doc, 0, 0, "09:00 AM", StatusConfirmed, ViaWalkIn)
	next := seedAppointment(repo, &doc, 1, 0, "09:20 AM", StatusConfirmed, ViaWalkIn)

	// Scheduled 09:00 at 20 minutes average, actually finished 09:30.
	endedAt, err := ParseClock("09:30 AM")
	require.NoError(t, err)

	done, err := svc.CompleteConsultation(ctx, current.ID, endedAt)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	got, err := repo.GetAppointment(ctx, next.ID)
	require.NoError(t, err)
	assert.Equal(t, "09:30 AM", got.Time)
	assert.Equal(t, 10, got.DelayMinutes)
}

func TestCompleteConsultation_NoOverrunNoPropagation(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	current := seedAppointment(repo, &doc, 0, 0, "09:00 AM", StatusConfirmed, ViaWalkIn)
	next := seedAppointment(repo, &doc, 1, 0, "09:20 AM", StatusConfirmed, ViaWalkIn)

	// Finished five minutes early.
	endedAt, err := ParseClock("09:15 AM")
	require.NoError(t, err)

	_, err = svc.CompleteConsultation(ctx, current.ID, endedAt)
	require.NoError(t, err)

	got, err := repo.GetAppointment(ctx, next.ID)
	require.NoError(t, err)
	assert.Equal(t, "09:20 AM", got.Time)
	assert.Equal(t, 0, got.DelayMinutes)
}

func TestCompleteConsultation_RequiresConfirmed(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)

	pending := seedAppointment(repo, &doc, 0, 0, "09:00 AM", StatusPending, ViaOnline)

	_, err := svc.CompleteConsultation(context.Background(), pending.ID, Minutes(9*60+20))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelAppointment_RunsRecoveryAndQueuesReassignment(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	queue := &recordingEnqueuer{}
	svc.SetTaskEnqueuer(queue)
	ctx := context.Background()

	victim := seedAppointment(repo, &doc, 0, 0, "09:00 AM", StatusConfirmed, ViaWalkIn)
	behind := seedAppointment(repo, &doc, 1, 0, "09:20 AM", StatusConfirmed, ViaWalkIn)
	delay := 20
	require.NoError(t, repo.ApplyUpdates(ctx, []AppointmentUpdate{{ID: behind.ID, DelayMinutes: &delay}}))

	cancelled, err := svc.CancelAppointment(ctx, victim.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	got, err := repo.GetAppointment(ctx, behind.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.DelayMinutes)

	require.Len(t, queue.calls, 1)
	assert.Equal(t, enqueueCall{doctorID: doc.ID, date: testDate, session: 0}, queue.calls[0])
}

func TestCancelAppointment_FromPending(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	appt := seedAppointment(repo, &doc, 0, 0, "09:00 AM", StatusPending, ViaOnline)

	cancelled, err := svc.CancelAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// Cancelling again is a wrong-state transition, not a missing record.
	_, err = svc.CancelAppointment(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkNoShow_PendingOnly(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	queue := &recordingEnqueuer{}
	svc.SetTaskEnqueuer(queue)
	ctx := context.Background()

	pending := seedAppointment(repo, &doc, 0, 0, "09:00 AM", StatusPending, ViaOnline)
	arrived := seedAppointment(repo, &doc, 1, 0, "09:20 AM", StatusConfirmed, ViaWalkIn)

	marked, err := svc.MarkNoShow(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, marked.Status)
	assert.Len(t, queue.calls, 1)

	// An arrived patient cannot no-show; the desk cancels instead.
	_, err = svc.MarkNoShow(ctx, arrived.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
