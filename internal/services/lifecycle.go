package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/repos"
	"github.com/fitlink/fitlink-backend/internal/requestdata"
	"github.com/fitlink/fitlink-backend/internal/types"
)

// TaskEvent is published on the event bus after every applied transition so
// listening dashboards can refresh without polling.
type TaskEvent struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	StudentID      uuid.UUID `json:"student_id"`
	TaskID         uuid.UUID `json:"task_id"`
	Action         string    `json:"action"`
	PriorStatus    string    `json:"prior_status"`
	NextStatus     string    `json:"next_status"`
	At             time.Time `json:"at"`
}

type LifecycleEventBus interface {
	PublishTaskEvent(ctx context.Context, event TaskEvent) error
}

// TaskLifecycleService owns every status change of a relationship task. All
// writers, the UI actions and the delivery-confirmation webhook alike, go
// through the same conditional-update primitive keyed on the expected prior
// status: whichever write lands first wins and the loser fails cleanly.
type TaskLifecycleService interface {
	Transition(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, expectedPrior, next string) (*types.RelationshipTask, error)
	Skip(ctx context.Context, taskID uuid.UUID) (*types.RelationshipTask, error)
	Delete(ctx context.Context, taskID uuid.UUID) (*types.RelationshipTask, error)
	MarkSent(ctx context.Context, taskID uuid.UUID) (*types.RelationshipTask, error)
}

type taskLifecycleService struct {
	db       *gorm.DB
	log      *logger.Logger
	taskRepo repos.TaskRepo
	logRepo  repos.LogRepo
	bus      LifecycleEventBus
}

func NewTaskLifecycleService(db *gorm.DB, baseLog *logger.Logger, taskRepo repos.TaskRepo, logRepo repos.LogRepo, bus LifecycleEventBus) TaskLifecycleService {
	return &taskLifecycleService{
		db:       db,
		log:      baseLog.With("service", "TaskLifecycleService"),
		taskRepo: taskRepo,
		logRepo:  logRepo,
		bus:      bus,
	}
}

// allowedTransition is the state machine proper. Sent is terminal. The
// reverse moves (skipped/deleted back to pending) exist only inside the undo
// engine and are rejected here.
func allowedTransition(from, to string) bool {
	if from != types.TaskStatusPending {
		return false
	}
	switch to {
	case types.TaskStatusSent, types.TaskStatusSkipped, types.TaskStatusDeleted:
		return true
	}
	return false
}

func (s *taskLifecycleService) Skip(ctx context.Context, taskID uuid.UUID) (*types.RelationshipTask, error) {
	return s.Transition(ctx, nil, taskID, types.TaskStatusPending, types.TaskStatusSkipped)
}

func (s *taskLifecycleService) Delete(ctx context.Context, taskID uuid.UUID) (*types.RelationshipTask, error) {
	return s.Transition(ctx, nil, taskID, types.TaskStatusPending, types.TaskStatusDeleted)
}

func (s *taskLifecycleService) MarkSent(ctx context.Context, taskID uuid.UUID) (*types.RelationshipTask, error) {
	return s.Transition(ctx, nil, taskID, types.TaskStatusPending, types.TaskStatusSent)
}

func (s *taskLifecycleService) Transition(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, expectedPrior, next string) (*types.RelationshipTask, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.OrganizationID == uuid.Nil {
		return nil, ValidationError("organization context required")
	}
	if !types.ValidTaskStatus(expectedPrior) || !types.ValidTaskStatus(next) {
		return nil, ValidationError(fmt.Sprintf("unknown status in transition %s -> %s", expectedPrior, next))
	}
	if !allowedTransition(expectedPrior, next) {
		return nil, ForbiddenTransitionError(fmt.Sprintf("transition %s -> %s is not permitted", expectedPrior, next))
	}

	task, err := s.taskRepo.GetByID(ctx, tx, rd.OrganizationID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Join(ErrNotFound, err)
		}
		return nil, err
	}
	if task.Status != expectedPrior {
		return nil, ForbiddenTransitionError(fmt.Sprintf("task is %s, expected %s", task.Status, expectedPrior))
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":     next,
		"updated_at": now,
	}
	if next == types.TaskStatusDeleted {
		updates["deleted_at"] = now
	}

	applied, err := s.taskRepo.UpdateStatusIf(ctx, tx, taskID, expectedPrior, updates)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Another writer changed the status between the read and the update.
		return nil, ConflictError(fmt.Sprintf("task status changed concurrently, expected %s", expectedPrior))
	}

	prior := task.Status
	priorScheduledFor := task.ScheduledFor
	task.Status = next
	task.UpdatedAt = now
	if next == types.TaskStatusDeleted {
		task.DeletedAt = &now
	}

	meta := map[string]any{
		"prior_status": prior,
		"next_status":  next,
		"actor":        rd.UserID.String(),
	}
	if next == types.TaskStatusSkipped {
		meta["prior_scheduled_for"] = priorScheduledFor.Format(time.RFC3339)
	}
	s.appendLog(ctx, tx, task, actionFor(next), meta)

	s.publish(ctx, TaskEvent{
		OrganizationID: task.OrganizationID,
		StudentID:      task.StudentID,
		TaskID:         task.ID,
		Action:         actionFor(next),
		PriorStatus:    prior,
		NextStatus:     next,
		At:             now,
	})

	return task, nil
}

func actionFor(status string) string {
	switch status {
	case types.TaskStatusSent:
		return types.LogActionSent
	case types.TaskStatusSkipped:
		return types.LogActionSkipped
	case types.TaskStatusDeleted:
		return types.LogActionDeleted
	}
	return status
}

// appendLog records the transition. The state change already succeeded, so a
// failed log write is an observability gap reported in the logs, never a
// rollback trigger.
func (s *taskLifecycleService) appendLog(ctx context.Context, tx *gorm.DB, task *types.RelationshipTask, action string, meta map[string]any) {
	raw, _ := json.Marshal(meta)
	if _, err := s.logRepo.Append(ctx, tx, &types.RelationshipLog{
		OrganizationID: task.OrganizationID,
		StudentID:      task.StudentID,
		TaskID:         task.ID,
		Action:         action,
		Channel:        task.Channel,
		Meta:           datatypes.JSON(raw),
		At:             time.Now().UTC(),
	}); err != nil {
		s.log.Error("Transition applied but log write failed", "task_id", task.ID, "action", action, "error", err)
	}
}

func (s *taskLifecycleService) publish(ctx context.Context, event TaskEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishTaskEvent(ctx, event); err != nil {
		s.log.Warn("Failed to publish task event", "task_id", event.TaskID, "action", event.Action, "error", err)
	}
}
