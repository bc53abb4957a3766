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

// UndoWindow bounds how long a skip or delete stays reversible. Undo is an
// "oops" safety net right after a UI action, not a general un-delete: once
// the window passes the action counts as intentional. The boundary is
// inclusive, an undo at exactly 5.0s still succeeds.
const UndoWindow = 5 * time.Second

// UndoService reverses a skipped or deleted task back to pending while the
// window is open. Eligibility is always computed on read against the
// timestamp persisted by the original action; there are no timers.
type UndoService interface {
	Undo(ctx context.Context, taskID uuid.UUID, priorStatus string, priorScheduledFor *time.Time) (*types.RelationshipTask, error)
}

type undoService struct {
	db       *gorm.DB
	log      *logger.Logger
	taskRepo repos.TaskRepo
	logRepo  repos.LogRepo
	bus      LifecycleEventBus
	now      func() time.Time
}

func NewUndoService(db *gorm.DB, baseLog *logger.Logger, taskRepo repos.TaskRepo, logRepo repos.LogRepo, bus LifecycleEventBus) UndoService {
	return &undoService{
		db:       db,
		log:      baseLog.With("service", "UndoService"),
		taskRepo: taskRepo,
		logRepo:  logRepo,
		bus:      bus,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *undoService) Undo(ctx context.Context, taskID uuid.UUID, priorStatus string, priorScheduledFor *time.Time) (*types.RelationshipTask, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.OrganizationID == uuid.Nil {
		return nil, ValidationError("organization context required")
	}

	restoreTo := priorStatus
	if restoreTo == "" {
		restoreTo = types.TaskStatusPending
	}
	if restoreTo != types.TaskStatusPending {
		return nil, ValidationError(fmt.Sprintf("cannot restore a task to %q", restoreTo))
	}

	task, err := s.taskRepo.GetByID(ctx, nil, rd.OrganizationID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Join(ErrNotFound, err)
		}
		return nil, err
	}

	// Precondition order matters: a sent or already-pending task is not
	// undoable regardless of timing.
	if task.Status != types.TaskStatusDeleted && task.Status != types.TaskStatusSkipped {
		return nil, ForbiddenTransitionError(fmt.Sprintf("a %s task cannot be undone", task.Status))
	}

	reference := task.UpdatedAt
	if task.Status == types.TaskStatusDeleted && task.DeletedAt != nil {
		reference = *task.DeletedAt
	}
	now := s.now()
	elapsed := now.Sub(reference)
	if elapsed > UndoWindow {
		return nil, &UndoWindowError{
			ElapsedSeconds: elapsed.Seconds(),
			MaxSeconds:     UndoWindow.Seconds(),
		}
	}

	updates := map[string]any{
		"status":     restoreTo,
		"deleted_at": nil,
		"updated_at": now,
	}
	if priorScheduledFor != nil && !priorScheduledFor.IsZero() {
		updates["scheduled_for"] = priorScheduledFor.UTC()
	}

	undone := task.Status
	applied, err := s.taskRepo.UpdateStatusIf(ctx, nil, taskID, undone, updates)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ConflictError(fmt.Sprintf("task status changed concurrently, expected %s", undone))
	}

	task.Status = restoreTo
	task.DeletedAt = nil
	task.UpdatedAt = now
	if priorScheduledFor != nil && !priorScheduledFor.IsZero() {
		task.ScheduledFor = priorScheduledFor.UTC()
	}

	meta, _ := json.Marshal(map[string]any{
		"undone_status":   undone,
		"restored_status": restoreTo,
		"elapsed_seconds": elapsed.Seconds(),
		"actor":           rd.UserID.String(),
	})
	if _, err := s.logRepo.Append(ctx, nil, &types.RelationshipLog{
		OrganizationID: task.OrganizationID,
		StudentID:      task.StudentID,
		TaskID:         task.ID,
		Action:         types.LogActionUndo,
		Channel:        task.Channel,
		Meta:           datatypes.JSON(meta),
		At:             now,
	}); err != nil {
		s.log.Error("Undo applied but log write failed", "task_id", task.ID, "error", err)
	}

	if s.bus != nil {
		if err := s.bus.PublishTaskEvent(ctx, TaskEvent{
			OrganizationID: task.OrganizationID,
			StudentID:      task.StudentID,
			TaskID:         task.ID,
			Action:         types.LogActionUndo,
			PriorStatus:    undone,
			NextStatus:     restoreTo,
			At:             now,
		}); err != nil {
			s.log.Warn("Failed to publish undo event", "task_id", task.ID, "error", err)
		}
	}

	return task, nil
}
