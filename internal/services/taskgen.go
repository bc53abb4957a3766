package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/repos"
	"github.com/fitlink/fitlink-backend/internal/requestdata"
	"github.com/fitlink/fitlink-backend/internal/types"
)

// TaskGeneratorService expands active templates against the student
// population into concrete relationship tasks. Re-runs are idempotent: a
// student/template pair with a pending task is skipped, and a duplicate
// insert lost to a concurrent run is treated as a no-op.
type TaskGeneratorService interface {
	Generate(ctx context.Context, tx *gorm.DB, template *types.MessageTemplate, students []*types.Student, eventsByStudent map[uuid.UUID]*types.AnchorEvent) ([]*types.RelationshipTask, error)
	GenerateForOrganization(ctx context.Context) (int, error)
}

type taskGeneratorService struct {
	db           *gorm.DB
	log          *logger.Logger
	templateRepo repos.TemplateRepo
	studentRepo  repos.StudentRepo
	eventRepo    repos.AnchorEventRepo
	taskRepo     repos.TaskRepo
	logRepo      repos.LogRepo
}

func NewTaskGeneratorService(
	db *gorm.DB,
	baseLog *logger.Logger,
	templateRepo repos.TemplateRepo,
	studentRepo repos.StudentRepo,
	eventRepo repos.AnchorEventRepo,
	taskRepo repos.TaskRepo,
	logRepo repos.LogRepo,
) TaskGeneratorService {
	return &taskGeneratorService{
		db:           db,
		log:          baseLog.With("service", "TaskGeneratorService"),
		templateRepo: templateRepo,
		studentRepo:  studentRepo,
		eventRepo:    eventRepo,
		taskRepo:     taskRepo,
		logRepo:      logRepo,
	}
}

func (s *taskGeneratorService) Generate(ctx context.Context, tx *gorm.DB, template *types.MessageTemplate, students []*types.Student, eventsByStudent map[uuid.UUID]*types.AnchorEvent) ([]*types.RelationshipTask, error) {
	if template == nil {
		return nil, ValidationError("template required")
	}
	if !template.Active {
		return nil, nil
	}

	filter, err := ParseAudienceFilter(template.AudienceFilter)
	if err != nil {
		return nil, err
	}

	created := make([]*types.RelationshipTask, 0, len(students))
	for _, student := range students {
		if !filter.Matches(student) {
			continue
		}
		event, ok := eventsByStudent[student.ID]
		if !ok || event == nil {
			continue
		}

		scheduledFor := scheduleFor(template, event)

		exists, err := s.taskRepo.PendingExists(ctx, tx, student.ID, template.Code)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		task := &types.RelationshipTask{
			OrganizationID: template.OrganizationID,
			StudentID:      student.ID,
			TemplateCode:   template.Code,
			Anchor:         template.Anchor,
			Status:         types.TaskStatusPending,
			ScheduledFor:   scheduledFor,
			Channel:        template.ChannelDefault,
			Payload: RenderMessage(template.MessageV1, StudentRenderContext(RenderInput{
				FirstName: student.FirstName(),
				FullName:  student.Name,
				PlanName:  student.PlanName,
				Now:       scheduledFor,
			})),
		}

		task, err = s.taskRepo.Create(ctx, tx, task)
		if err != nil {
			// A concurrent run created the same pending task first.
			if errors.Is(err, repos.ErrDuplicate) {
				continue
			}
			return created, err
		}
		created = append(created, task)

		meta, _ := json.Marshal(map[string]any{"status": types.TaskStatusPending, "template_code": template.Code})
		if _, err := s.logRepo.Append(ctx, tx, &types.RelationshipLog{
			OrganizationID: template.OrganizationID,
			StudentID:      student.ID,
			TaskID:         task.ID,
			Action:         types.LogActionCreated,
			Channel:        task.Channel,
			Meta:           datatypes.JSON(meta),
			At:             time.Now().UTC(),
		}); err != nil {
			s.log.Warn("Task created but log write failed", "task_id", task.ID, "error", err)
		}
	}

	return created, nil
}

const generateConcurrency = 4

func (s *taskGeneratorService) GenerateForOrganization(ctx context.Context) (int, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.OrganizationID == uuid.Nil {
		return 0, ValidationError("organization context required")
	}
	orgID := rd.OrganizationID

	templates, err := s.templateRepo.ListActiveByOrg(ctx, nil, orgID)
	if err != nil {
		return 0, err
	}
	if len(templates) == 0 {
		return 0, nil
	}

	students, err := s.studentRepo.ListActiveByOrg(ctx, nil, orgID)
	if err != nil {
		return 0, err
	}

	var (
		mu    sync.Mutex
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(generateConcurrency)
	for _, template := range templates {
		g.Go(func() error {
			events, err := s.eventRepo.ListByOrgAndType(gctx, nil, orgID, template.Anchor)
			if err != nil {
				return err
			}
			created, err := s.Generate(gctx, nil, template, students, latestEventByStudent(events))
			if err != nil {
				return err
			}
			mu.Lock()
			total += len(created)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}

	s.log.Info("Task generation finished", "org_id", orgID, "templates", len(templates), "created", total)
	return total, nil
}

// latestEventByStudent keeps the most recent event per student. The repo
// returns rows ordered occurred_at DESC, so first wins.
func latestEventByStudent(events []*types.AnchorEvent) map[uuid.UUID]*types.AnchorEvent {
	byStudent := make(map[uuid.UUID]*types.AnchorEvent, len(events))
	for _, event := range events {
		if _, ok := byStudent[event.StudentID]; !ok {
			byStudent[event.StudentID] = event
		}
	}
	return byStudent
}

// scheduleFor computes the task fire time: the anchor timestamp shifted by
// the template's day offset. A nil offset means fire at the anchor itself.
func scheduleFor(template *types.MessageTemplate, event *types.AnchorEvent) time.Time {
	anchor := anchorTimestamp(template, event)
	if template.TemporalOffsetDays == nil || *template.TemporalOffsetDays == 0 {
		return anchor
	}
	return anchor.AddDate(0, 0, *template.TemporalOffsetDays)
}

// anchorTimestamp resolves the reference time for one event. When the
// template names a field on the event, that field's RFC3339 value wins;
// otherwise the event's own occurrence timestamp is used.
func anchorTimestamp(template *types.MessageTemplate, event *types.AnchorEvent) time.Time {
	if template.TemporalAnchorField == nil || *template.TemporalAnchorField == "" || len(event.Fields) == 0 {
		return event.OccurredAt
	}
	var fields map[string]any
	if err := json.Unmarshal(event.Fields, &fields); err != nil {
		return event.OccurredAt
	}
	raw, ok := fields[*template.TemporalAnchorField]
	if !ok {
		return event.OccurredAt
	}
	str, ok := raw.(string)
	if !ok {
		return event.OccurredAt
	}
	ts, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return event.OccurredAt
	}
	return ts
}
