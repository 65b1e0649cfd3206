package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReassignArrived_PullsConfirmedForward(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	// Slot 0 is empty; two arrived walk-ins wait behind it.
	second := seedAppointment(repo, &doc, 1, 0, "09:20 AM", StatusConfirmed, ViaWalkIn)
	third := seedAppointment(repo, &doc, 2, 0, "09:40 AM", StatusConfirmed, ViaWalkIn)

	require.NoError(t, svc.ReassignArrived(ctx, doc.ID, testDate, 0))

	got, err := repo.GetAppointment(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SlotIndex)
	assert.Equal(t, "09:00 AM", got.Time)
	assert.Equal(t, "08:45 AM", got.CutOffTime)
	assert.Equal(t, "09:15 AM", got.NoShowTime)

	// The slot the first move vacated is filled in the same pass.
	gotThird, err := repo.GetAppointment(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotThird.SlotIndex)
	assert.Equal(t, "09:20 AM", gotThird.Time)
}

func TestReassignArrived_NeverMovesPending(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	pending := seedAppointment(repo, &doc, 1, 0, "09:20 AM", StatusPending, ViaOnline)

	require.NoError(t, svc.ReassignArrived(ctx, doc.ID, testDate, 0))

	got, err := repo.GetAppointment(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SlotIndex)
	assert.Equal(t, "09:20 AM", got.Time)
}

func TestReassignArrived_SecondRunIsNoOp(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	moved := seedAppointment(repo, &doc, 2, 0, "09:40 AM", StatusConfirmed, ViaWalkIn)

	require.NoError(t, svc.ReassignArrived(ctx, doc.ID, testDate, 0))
	first, err := repo.GetAppointment(ctx, moved.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.SlotIndex)

	require.NoError(t, svc.ReassignArrived(ctx, doc.ID, testDate, 0))
	second, err := repo.GetAppointment(ctx, moved.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReassignArrived_WalkInBeatsAdvanceForWindowSlot(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)

	// 08:30 now: the 09:00 vacancy sits inside the exclusion window, so
	// online booking can no longer fill it. The arrived walk-in gets it
	// ahead of the earlier-scheduled advance booking.
	clock := FixedClock{Instant: time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)}
	svc := newTestService(repo, clock)
	ctx := context.Background()

	advance := seedAppointment(repo, &doc, 1, 0, "09:20 AM", StatusConfirmed, ViaOnline)
	walkIn := seedAppointment(repo, &doc, 2, 0, "09:40 AM", StatusConfirmed, ViaWalkIn)

	require.NoError(t, svc.ReassignArrived(ctx, doc.ID, testDate, 0))

	gotWalkIn, err := repo.GetAppointment(ctx, walkIn.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, gotWalkIn.SlotIndex)
	assert.Equal(t, "09:00 AM", gotWalkIn.Time)

	// No earlier empty slot is left for the advance booking; the 09:40
	// vacancy is behind it.
	gotAdvance, err := repo.GetAppointment(ctx, advance.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotAdvance.SlotIndex)
	assert.Equal(t, "09:20 AM", gotAdvance.Time)
}

func TestReassignArrived_AdvanceMovesWhenNoWalkIn(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	advance := seedAppointment(repo, &doc, 2, 0, "09:40 AM", StatusConfirmed, ViaOnline)

	require.NoError(t, svc.ReassignArrived(ctx, doc.ID, testDate, 0))

	got, err := repo.GetAppointment(ctx, advance.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SlotIndex)
	assert.Equal(t, "09:00 AM", got.Time)
}

func TestReassignArrived_OnlyCurrentDate(t *testing.T) {
	repo := NewMemoryRepository()
	doc := testDoctor()
	repo.PutDoctor(doc)

	// Clock is still on the 15th; a pass for the 22nd must not touch
	// anything.
	clock := FixedClock{Instant: testInstant}
	svc := newTestService(repo, clock)

	require.NoError(t, svc.ReassignArrived(context.Background(), doc.ID, "2024-01-22", 0))
}

func TestReassignArrived_SessionsAreIndependent(t *testing.T) {
	repo := NewMemoryRepository()
	doc := twoSessionDoctor()
	repo.PutDoctor(doc)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	// Morning slot 0 is empty but the arrived patient is in the evening
	// session; a morning pass must not pull across sessions.
	evening := seedAppointment(repo, &doc, 4, 1, "05:20 PM", StatusConfirmed, ViaWalkIn)

	require.NoError(t, svc.ReassignArrived(ctx, doc.ID, testDate, 0))

	got, err := repo.GetAppointment(ctx, evening.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.SlotIndex)
	assert.Equal(t, "05:20 PM", got.Time)
}
