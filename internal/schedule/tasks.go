package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TaskReassignArrived is queued whenever a vacancy opens up; the worker
// runs the pull-forward pass off the hot path of the triggering action.
const TaskReassignArrived = "schedule:reassign_arrived"

type ReassignPayload struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Session  int       `json:"session"`
}

func NewReassignTask(doctorID uuid.UUID, date string, session int) (*asynq.Task, error) {
	payload, err := json.Marshal(ReassignPayload{
		DoctorID: doctorID,
		Date:     date,
		Session:  session,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal reassign payload: %w", err)
	}
	return asynq.NewTask(TaskReassignArrived, payload), nil
}

// AsynqEnqueuer implements TaskEnqueuer over an asynq client.
type AsynqEnqueuer struct {
	client *asynq.Client
	log    zerolog.Logger
}

func NewAsynqEnqueuer(client *asynq.Client, log zerolog.Logger) *AsynqEnqueuer {
	return &AsynqEnqueuer{
		client: client,
		log:    log.With().Str("component", "tasks").Logger(),
	}
}

func (e *AsynqEnqueuer) EnqueueReassign(ctx context.Context, doctorID uuid.UUID, date string, session int) error {
	task, err := NewReassignTask(doctorID, date, session)
	if err != nil {
		return err
	}

	info, err := e.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Second),
		asynq.Unique(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("enqueue reassign task: %w", err)
	}

	e.log.Debug().
		Str("task_id", info.ID).
		Str("doctor_id", doctorID.String()).
		Str("date", date).
		Msg("queued reassignment pass")
	return nil
}

// HandleReassignTask is the asynq handler for TaskReassignArrived. The pass
// is best-effort by contract: any failure is logged and swallowed so the
// queue never retries into a stale day.
func (s *Service) HandleReassignTask(ctx context.Context, t *asynq.Task) error {
	var p ReassignPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		s.log.Warn().Err(err).Msg("discarding malformed reassign task payload")
		return nil
	}

	if err := s.ReassignArrived(ctx, p.DoctorID, p.Date, p.Session); err != nil {
		s.log.Warn().Err(err).
			Str("doctor_id", p.DoctorID.String()).
			Str("date", p.Date).
			Msg("reassignment pass failed")
	}
	return nil
}
