package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/repos"
	"github.com/fitlink/fitlink-backend/internal/requestdata"
	"github.com/fitlink/fitlink-backend/internal/types"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func testContext(orgID, userID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           "trainer",
	})
}

type fakeTemplateRepo struct {
	mu              sync.Mutex
	templates       map[uuid.UUID]*types.MessageTemplate
	forceDuplicates int
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: map[uuid.UUID]*types.MessageTemplate{}}
}

func (f *fakeTemplateRepo) Create(ctx context.Context, tx *gorm.DB, template *types.MessageTemplate) (*types.MessageTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forceDuplicates > 0 {
		f.forceDuplicates--
		return nil, repos.ErrDuplicate
	}
	for _, existing := range f.templates {
		if existing.OrganizationID == template.OrganizationID && existing.Code == template.Code {
			return nil, repos.ErrDuplicate
		}
	}
	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	stored := *template
	f.templates[template.ID] = &stored
	return template, nil
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, templateID uuid.UUID) (*types.MessageTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	template, ok := f.templates[templateID]
	if !ok || template.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	result := *template
	return &result, nil
}

func (f *fakeTemplateRepo) GetByCode(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, code string) (*types.MessageTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, template := range f.templates {
		if template.OrganizationID == orgID && template.Code == code {
			result := *template
			return &result, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTemplateRepo) ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.MessageTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []*types.MessageTemplate
	for _, template := range f.templates {
		if template.OrganizationID == orgID {
			result := *template
			results = append(results, &result)
		}
	}
	return results, nil
}

func (f *fakeTemplateRepo) ListActiveByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.MessageTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []*types.MessageTemplate
	for _, template := range f.templates {
		if template.OrganizationID == orgID && template.Active {
			result := *template
			results = append(results, &result)
		}
	}
	return results, nil
}

func (f *fakeTemplateRepo) ListCodesByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var codes []string
	for _, template := range f.templates {
		if template.OrganizationID == orgID {
			codes = append(codes, template.Code)
		}
	}
	return codes, nil
}

func (f *fakeTemplateRepo) UpdateFields(ctx context.Context, tx *gorm.DB, orgID, templateID uuid.UUID, updates map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	template, ok := f.templates[templateID]
	if !ok || template.OrganizationID != orgID {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "touchpoint":
			template.Touchpoint = value.(string)
		case "channel_default":
			template.ChannelDefault = value.(string)
		case "message_v1":
			template.MessageV1 = value.(string)
		case "message_v2":
			v := value.(string)
			template.MessageV2 = &v
		case "active":
			template.Active = value.(bool)
		case "temporal_offset_days":
			v := value.(int)
			template.TemporalOffsetDays = &v
		case "temporal_anchor_field":
			v := value.(string)
			template.TemporalAnchorField = &v
		}
	}
	return nil
}

type fakeTaskRepo struct {
	mu             sync.Mutex
	tasks          map[uuid.UUID]*types.RelationshipTask
	createErr      error
	failNextUpdate bool
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[uuid.UUID]*types.RelationshipTask{}}
}

func (f *fakeTaskRepo) put(task *types.RelationshipTask) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	stored := *task
	f.tasks[task.ID] = &stored
}

func (f *fakeTaskRepo) get(taskID uuid.UUID) *types.RelationshipTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok {
		return nil
	}
	result := *task
	return &result
}

func (f *fakeTaskRepo) Create(ctx context.Context, tx *gorm.DB, task *types.RelationshipTask) (*types.RelationshipTask, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	f.put(task)
	return task, nil
}

func (f *fakeTaskRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, taskID uuid.UUID) (*types.RelationshipTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok || task.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	result := *task
	return &result, nil
}

func (f *fakeTaskRepo) ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.RelationshipTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []*types.RelationshipTask
	for _, task := range f.tasks {
		if task.OrganizationID == orgID {
			result := *task
			results = append(results, &result)
		}
	}
	return results, nil
}

func (f *fakeTaskRepo) ListByStudent(ctx context.Context, tx *gorm.DB, orgID, studentID uuid.UUID) ([]*types.RelationshipTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []*types.RelationshipTask
	for _, task := range f.tasks {
		if task.OrganizationID == orgID && task.StudentID == studentID {
			result := *task
			results = append(results, &result)
		}
	}
	return results, nil
}

func (f *fakeTaskRepo) PendingExists(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, templateCode string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, task := range f.tasks {
		if task.StudentID == studentID && task.TemplateCode == templateCode && task.Status == types.TaskStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTaskRepo) UpdateStatusIf(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, expectedStatus string, updates map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextUpdate {
		f.failNextUpdate = false
		return false, nil
	}
	task, ok := f.tasks[taskID]
	if !ok || task.Status != expectedStatus {
		return false, nil
	}
	for key, value := range updates {
		switch key {
		case "status":
			task.Status = value.(string)
		case "updated_at":
			task.UpdatedAt = value.(time.Time)
		case "deleted_at":
			if value == nil {
				task.DeletedAt = nil
			} else {
				v := value.(time.Time)
				task.DeletedAt = &v
			}
		case "scheduled_for":
			task.ScheduledFor = value.(time.Time)
		}
	}
	return true, nil
}

type fakeLogRepo struct {
	mu        sync.Mutex
	rows      []*types.RelationshipLog
	appendErr error
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{}
}

func (f *fakeLogRepo) Append(ctx context.Context, tx *gorm.DB, row *types.RelationshipLog) (*types.RelationshipLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	stored := *row
	f.rows = append(f.rows, &stored)
	return row, nil
}

func (f *fakeLogRepo) ListByTask(ctx context.Context, tx *gorm.DB, orgID, taskID uuid.UUID) ([]*types.RelationshipLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []*types.RelationshipLog
	for _, row := range f.rows {
		if row.OrganizationID == orgID && row.TaskID == taskID {
			result := *row
			results = append(results, &result)
		}
	}
	return results, nil
}

func (f *fakeLogRepo) ListByStudent(ctx context.Context, tx *gorm.DB, orgID, studentID uuid.UUID) ([]*types.RelationshipLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []*types.RelationshipLog
	for _, row := range f.rows {
		if row.OrganizationID == orgID && row.StudentID == studentID {
			result := *row
			results = append(results, &result)
		}
	}
	return results, nil
}

func (f *fakeLogRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]string, 0, len(f.rows))
	for _, row := range f.rows {
		actions = append(actions, row.Action)
	}
	return actions
}

type fakeStudentRepo struct {
	students []*types.Student
}

func (f *fakeStudentRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, studentID uuid.UUID) (*types.Student, error) {
	for _, student := range f.students {
		if student.OrganizationID == orgID && student.ID == studentID {
			return student, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStudentRepo) ListActiveByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.Student, error) {
	var results []*types.Student
	for _, student := range f.students {
		if student.OrganizationID == orgID && student.Active {
			results = append(results, student)
		}
	}
	return results, nil
}

type fakeAnchorEventRepo struct {
	events []*types.AnchorEvent
}

func (f *fakeAnchorEventRepo) ListByOrgAndType(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, anchorType string) ([]*types.AnchorEvent, error) {
	var results []*types.AnchorEvent
	for _, event := range f.events {
		if event.OrganizationID == orgID && event.Type == anchorType {
			results = append(results, event)
		}
	}
	// Newest first, matching the store query ordering.
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			if results[j].OccurredAt.After(results[i].OccurredAt) {
				results[i], results[j] = results[j], results[i]
			}
		}
	}
	return results, nil
}

type fakeEventBus struct {
	mu     sync.Mutex
	events []TaskEvent
	err    error
}

func (f *fakeEventBus) PublishTaskEvent(ctx context.Context, event TaskEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventBus) published() []TaskEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TaskEvent{}, f.events...)
}
