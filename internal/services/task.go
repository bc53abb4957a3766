package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/repos"
	"github.com/fitlink/fitlink-backend/internal/requestdata"
	"github.com/fitlink/fitlink-backend/internal/types"
)

// MessageSender is the outbound transport collaborator. The engine only
// hands over channel, rendered payload and recipient; delivery confirmation
// comes back later through the webhook and flips the task to sent.
type MessageSender interface {
	Send(ctx context.Context, channel, recipient, payload string) error
}

// TaskService is the read path plus dispatch: bucketed listing for the
// kanban, and handing one task's rendered payload to the transport.
type TaskService interface {
	ListBuckets(ctx context.Context) (*TaskBuckets, error)
	ListBucket(ctx context.Context, bucket string) ([]*types.RelationshipTask, error)
	Dispatch(ctx context.Context, taskID uuid.UUID) error
}

type taskService struct {
	db           *gorm.DB
	log          *logger.Logger
	orgRepo      repos.OrganizationRepo
	taskRepo     repos.TaskRepo
	studentRepo  repos.StudentRepo
	templateRepo repos.TemplateRepo
	sender       MessageSender
	now          func() time.Time
}

func NewTaskService(db *gorm.DB, baseLog *logger.Logger, orgRepo repos.OrganizationRepo, taskRepo repos.TaskRepo, studentRepo repos.StudentRepo, templateRepo repos.TemplateRepo, sender MessageSender) TaskService {
	return &taskService{
		db:           db,
		log:          baseLog.With("service", "TaskService"),
		orgRepo:      orgRepo,
		taskRepo:     taskRepo,
		studentRepo:  studentRepo,
		templateRepo: templateRepo,
		sender:       sender,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *taskService) ListBuckets(ctx context.Context) (*TaskBuckets, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.OrganizationID == uuid.Nil {
		return nil, ValidationError("organization context required")
	}

	org, err := s.orgRepo.GetByID(ctx, nil, rd.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Join(ErrNotFound, err)
		}
		return nil, err
	}

	tasks, err := s.taskRepo.ListByOrg(ctx, nil, rd.OrganizationID)
	if err != nil {
		return nil, err
	}

	buckets := ClassifyTasks(tasks, s.now(), org.Location())
	return &buckets, nil
}

func (s *taskService) ListBucket(ctx context.Context, bucket string) ([]*types.RelationshipTask, error) {
	if !ValidBucket(bucket) {
		return nil, ValidationError(fmt.Sprintf("unknown bucket %q", bucket))
	}
	buckets, err := s.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	switch bucket {
	case BucketOverdue:
		return buckets.Overdue, nil
	case BucketToday:
		return buckets.Today, nil
	case BucketPendingSend:
		return buckets.PendingSend, nil
	case BucketSent:
		return buckets.Sent, nil
	default:
		return buckets.PostponedOrSkipped, nil
	}
}

// Dispatch renders the message with fresh student data and hands it to the
// transport. It does not flip the task to sent; only the transport's
// delivery confirmation does that.
func (s *taskService) Dispatch(ctx context.Context, taskID uuid.UUID) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.OrganizationID == uuid.Nil {
		return ValidationError("organization context required")
	}
	if s.sender == nil {
		return errors.Join(ErrDependencyUnavailable, errors.New("message transport not configured"))
	}

	task, err := s.taskRepo.GetByID(ctx, nil, rd.OrganizationID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Join(ErrNotFound, err)
		}
		return err
	}
	if task.Status != types.TaskStatusPending {
		return ForbiddenTransitionError(fmt.Sprintf("cannot dispatch a %s task", task.Status))
	}

	student, err := s.studentRepo.GetByID(ctx, nil, rd.OrganizationID, task.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Join(ErrNotFound, err)
		}
		return err
	}

	// Rendering is re-done at delivery with fresh student data; the payload
	// column is only the display snapshot taken at generation.
	body := task.Payload
	if template, err := s.templateRepo.GetByCode(ctx, nil, rd.OrganizationID, task.TemplateCode); err == nil {
		body = template.MessageV1
	}
	payload := RenderMessage(body, StudentRenderContext(RenderInput{
		FirstName: student.FirstName(),
		FullName:  student.Name,
		PlanName:  student.PlanName,
		Now:       s.now(),
	}))

	if err := s.sender.Send(ctx, task.Channel, student.Phone, payload); err != nil {
		return errors.Join(ErrDependencyUnavailable, err)
	}

	s.log.Info("Task handed to transport", "task_id", task.ID, "channel", task.Channel)
	return nil
}
