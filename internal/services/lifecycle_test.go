package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fitlink/fitlink-backend/internal/types"
)

func seedTask(taskRepo *fakeTaskRepo, orgID uuid.UUID, status string) *types.RelationshipTask {
	task := &types.RelationshipTask{
		ID:             uuid.New(),
		OrganizationID: orgID,
		StudentID:      uuid.New(),
		TemplateCode:   "0001",
		Anchor:         types.AnchorSaleClose,
		Status:         status,
		ScheduledFor:   time.Date(2025, 1, 28, 10, 0, 0, 0, time.UTC),
		Channel:        "whatsapp",
		Payload:        "Oi Maria",
		CreatedAt:      time.Now().UTC().Add(-time.Hour),
		UpdatedAt:      time.Now().UTC().Add(-time.Hour),
	}
	taskRepo.put(task)
	return task
}

func TestTransitionMatrix(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr error
	}{
		{name: "pending to sent", from: types.TaskStatusPending, to: types.TaskStatusSent},
		{name: "pending to skipped", from: types.TaskStatusPending, to: types.TaskStatusSkipped},
		{name: "pending to deleted", from: types.TaskStatusPending, to: types.TaskStatusDeleted},
		{name: "sent is terminal", from: types.TaskStatusSent, to: types.TaskStatusSkipped, wantErr: ErrForbiddenTransition},
		{name: "skipped cannot be sent", from: types.TaskStatusSkipped, to: types.TaskStatusSent, wantErr: ErrForbiddenTransition},
		{name: "deleted cannot be skipped", from: types.TaskStatusDeleted, to: types.TaskStatusSkipped, wantErr: ErrForbiddenTransition},
		{name: "no direct return to pending", from: types.TaskStatusSkipped, to: types.TaskStatusPending, wantErr: ErrForbiddenTransition},
		{name: "unknown target status", from: types.TaskStatusPending, to: "archived", wantErr: ErrValidation},
		{name: "unknown prior status", from: "archived", to: types.TaskStatusSent, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orgID := uuid.New()
			taskRepo := newFakeTaskRepo()
			task := seedTask(taskRepo, orgID, tt.from)
			svc := NewTaskLifecycleService(nil, testLogger(), taskRepo, newFakeLogRepo(), nil)

			_, err := svc.Transition(testContext(orgID, uuid.New()), nil, task.ID, tt.from, tt.to)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Transition() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transition() error = %v", err)
			}
			if got := taskRepo.get(task.ID); got.Status != tt.to {
				t.Fatalf("stored status = %q, want %q", got.Status, tt.to)
			}
		})
	}
}

func TestSkipWritesLogWithPriorSchedule(t *testing.T) {
	orgID := uuid.New()
	userID := uuid.New()
	taskRepo := newFakeTaskRepo()
	logRepo := newFakeLogRepo()
	task := seedTask(taskRepo, orgID, types.TaskStatusPending)
	svc := NewTaskLifecycleService(nil, testLogger(), taskRepo, logRepo, nil)

	updated, err := svc.Skip(testContext(orgID, userID), task.ID)
	if err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	if updated.Status != types.TaskStatusSkipped {
		t.Fatalf("Status = %q, want skipped", updated.Status)
	}

	if len(logRepo.rows) != 1 {
		t.Fatalf("log rows = %d, want 1", len(logRepo.rows))
	}
	row := logRepo.rows[0]
	if row.Action != types.LogActionSkipped || row.TaskID != task.ID {
		t.Fatalf("unexpected log row %+v", row)
	}
	var meta map[string]any
	if err := json.Unmarshal(row.Meta, &meta); err != nil {
		t.Fatalf("meta unmarshal: %v", err)
	}
	if meta["prior_status"] != types.TaskStatusPending || meta["next_status"] != types.TaskStatusSkipped {
		t.Fatalf("meta = %v", meta)
	}
	if meta["prior_scheduled_for"] != task.ScheduledFor.Format(time.RFC3339) {
		t.Fatalf("prior_scheduled_for = %v, want %v", meta["prior_scheduled_for"], task.ScheduledFor.Format(time.RFC3339))
	}
	if meta["actor"] != userID.String() {
		t.Fatalf("actor = %v, want %v", meta["actor"], userID)
	}
}

func TestDeleteStampsDeletedAt(t *testing.T) {
	orgID := uuid.New()
	taskRepo := newFakeTaskRepo()
	logRepo := newFakeLogRepo()
	task := seedTask(taskRepo, orgID, types.TaskStatusPending)
	svc := NewTaskLifecycleService(nil, testLogger(), taskRepo, logRepo, nil)

	updated, err := svc.Delete(testContext(orgID, uuid.New()), task.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if updated.Status != types.TaskStatusDeleted || updated.DeletedAt == nil {
		t.Fatalf("delete must set status and deleted_at, got %+v", updated)
	}

	stored := taskRepo.get(task.ID)
	if stored.DeletedAt == nil {
		t.Fatal("stored row missing deleted_at")
	}
	if got := logRepo.actions(); len(got) != 1 || got[0] != types.LogActionDeleted {
		t.Fatalf("log actions = %v", got)
	}
}

func TestMarkSentPublishesEvent(t *testing.T) {
	orgID := uuid.New()
	taskRepo := newFakeTaskRepo()
	bus := &fakeEventBus{}
	task := seedTask(taskRepo, orgID, types.TaskStatusPending)
	svc := NewTaskLifecycleService(nil, testLogger(), taskRepo, newFakeLogRepo(), bus)

	if _, err := svc.MarkSent(testContext(orgID, uuid.New()), task.ID); err != nil {
		t.Fatalf("MarkSent() error = %v", err)
	}

	events := bus.published()
	if len(events) != 1 {
		t.Fatalf("published %d events, want 1", len(events))
	}
	event := events[0]
	if event.TaskID != task.ID || event.PriorStatus != types.TaskStatusPending || event.NextStatus != types.TaskStatusSent {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestTransitionConcurrentLoserConflicts(t *testing.T) {
	orgID := uuid.New()
	taskRepo := newFakeTaskRepo()
	logRepo := newFakeLogRepo()
	task := seedTask(taskRepo, orgID, types.TaskStatusPending)
	taskRepo.failNextUpdate = true
	svc := NewTaskLifecycleService(nil, testLogger(), taskRepo, logRepo, nil)

	_, err := svc.Skip(testContext(orgID, uuid.New()), task.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("error = %v, want conflict", err)
	}
	if len(logRepo.rows) != 0 {
		t.Fatal("losing writer must not append a log row")
	}
	if got := taskRepo.get(task.ID); got.Status != types.TaskStatusPending {
		t.Fatalf("stored status = %q, want unchanged pending", got.Status)
	}
}

func TestTransitionChecksActualStatus(t *testing.T) {
	orgID := uuid.New()
	taskRepo := newFakeTaskRepo()
	task := seedTask(taskRepo, orgID, types.TaskStatusSent)
	svc := NewTaskLifecycleService(nil, testLogger(), taskRepo, newFakeLogRepo(), nil)

	_, err := svc.Skip(testContext(orgID, uuid.New()), task.ID)
	if !errors.Is(err, ErrForbiddenTransition) {
		t.Fatalf("error = %v, want forbidden transition", err)
	}
}

func TestTransitionScopesByOrganization(t *testing.T) {
	taskRepo := newFakeTaskRepo()
	task := seedTask(taskRepo, uuid.New(), types.TaskStatusPending)
	svc := NewTaskLifecycleService(nil, testLogger(), taskRepo, newFakeLogRepo(), nil)

	// A different org must not be able to see, let alone move, the task.
	_, err := svc.Skip(testContext(uuid.New(), uuid.New()), task.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestTransitionRequiresContext(t *testing.T) {
	svc := NewTaskLifecycleService(nil, testLogger(), newFakeTaskRepo(), newFakeLogRepo(), nil)
	_, err := svc.Skip(context.Background(), uuid.New())
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestTransitionLogFailureDoesNotRollBack(t *testing.T) {
	orgID := uuid.New()
	taskRepo := newFakeTaskRepo()
	logRepo := newFakeLogRepo()
	logRepo.appendErr = errors.New("log store down")
	task := seedTask(taskRepo, orgID, types.TaskStatusPending)
	svc := NewTaskLifecycleService(nil, testLogger(), taskRepo, logRepo, nil)

	updated, err := svc.Skip(testContext(orgID, uuid.New()), task.ID)
	if err != nil {
		t.Fatalf("Skip() error = %v, log failure must not surface", err)
	}
	if updated.Status != types.TaskStatusSkipped {
		t.Fatalf("Status = %q, want skipped", updated.Status)
	}
}
