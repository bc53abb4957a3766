package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fitlink/fitlink-backend/internal/requestdata"
	"github.com/fitlink/fitlink-backend/internal/services"
	"github.com/fitlink/fitlink-backend/internal/types"
)

type TaskHandler struct {
	taskService      services.TaskService
	generatorService services.TaskGeneratorService
	lifecycleService services.TaskLifecycleService
	undoService      services.UndoService
	webhookToken     string
}

func NewTaskHandler(
	taskService services.TaskService,
	generatorService services.TaskGeneratorService,
	lifecycleService services.TaskLifecycleService,
	undoService services.UndoService,
	webhookToken string,
) *TaskHandler {
	return &TaskHandler{
		taskService:      taskService,
		generatorService: generatorService,
		lifecycleService: lifecycleService,
		undoService:      undoService,
		webhookToken:     webhookToken,
	}
}

func (th *TaskHandler) List(c *gin.Context) {
	bucket := c.Query("bucket")
	if bucket == "" {
		buckets, err := th.taskService.ListBuckets(c.Request.Context())
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		RespondOK(c, gin.H{"buckets": buckets})
		return
	}

	tasks, err := th.taskService.ListBucket(c.Request.Context(), bucket)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"bucket": bucket, "tasks": tasks})
}

func (th *TaskHandler) Generate(c *gin.Context) {
	created, err := th.generatorService.GenerateForOrganization(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"created": created})
}

func (th *TaskHandler) Skip(c *gin.Context) {
	th.transition(c, th.lifecycleService.Skip)
}

func (th *TaskHandler) Delete(c *gin.Context) {
	th.transition(c, th.lifecycleService.Delete)
}

func (th *TaskHandler) MarkSent(c *gin.Context) {
	th.transition(c, th.lifecycleService.MarkSent)
}

func (th *TaskHandler) Dispatch(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	if err := th.taskService.Dispatch(c.Request.Context(), taskID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"dispatched": true})
}

type undoRequest struct {
	PreviousStatus       string     `json:"previous_status"`
	PreviousScheduledFor *time.Time `json:"previous_scheduled_for,omitempty"`
}

func (th *TaskHandler) Undo(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	var req undoRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	task, err := th.undoService.Undo(c.Request.Context(), taskID, req.PreviousStatus, req.PreviousScheduledFor)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}

type deliveryWebhookRequest struct {
	OrganizationID string `json:"organization_id"`
	TaskID         string `json:"task_id"`
	Status         string `json:"status"`
}

// DeliveryWebhook is the gateway's status callback, the sole trigger for
// pending -> sent. It runs outside the tenant middleware and authenticates
// with the shared webhook token instead.
func (th *TaskHandler) DeliveryWebhook(c *gin.Context) {
	if th.webhookToken == "" || c.GetHeader("X-Webhook-Token") != th.webhookToken {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req deliveryWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	if req.Status != "delivered" {
		RespondOK(c, gin.H{"ignored": true})
		return
	}

	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}

	ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{
		OrganizationID: orgID,
		UserID:         uuid.Nil,
		Role:           "system",
	})
	task, err := th.lifecycleService.MarkSent(ctx, taskID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}

func (th *TaskHandler) transition(c *gin.Context, apply func(ctx context.Context, taskID uuid.UUID) (*types.RelationshipTask, error)) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	task, err := apply(c.Request.Context(), taskID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}
