package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/types"
)

type TaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, task *types.RelationshipTask) (*types.RelationshipTask, error)
	GetByID(ctx context.Context, tx *gorm.DB, orgID, taskID uuid.UUID) (*types.RelationshipTask, error)
	ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.RelationshipTask, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, orgID, studentID uuid.UUID) ([]*types.RelationshipTask, error)
	PendingExists(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, templateCode string) (bool, error)
	UpdateStatusIf(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, expectedStatus string, updates map[string]any) (bool, error)
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (tr *taskRepo) Create(ctx context.Context, tx *gorm.DB, task *types.RelationshipTask) (*types.RelationshipTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if err := transaction.WithContext(ctx).Create(task).Error; err != nil {
		return nil, mapWriteError(err)
	}

	return task, nil
}

func (tr *taskRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, taskID uuid.UUID) (*types.RelationshipTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var result types.RelationshipTask
	if err := transaction.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, taskID).
		First(&result).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (tr *taskRepo) ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.RelationshipTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.RelationshipTask
	if err := transaction.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("scheduled_for ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (tr *taskRepo) ListByStudent(ctx context.Context, tx *gorm.DB, orgID, studentID uuid.UUID) ([]*types.RelationshipTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.RelationshipTask
	if err := transaction.WithContext(ctx).
		Where("organization_id = ? AND student_id = ?", orgID, studentID).
		Order("scheduled_for ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (tr *taskRepo) PendingExists(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, templateCode string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.RelationshipTask{}).
		Where("student_id = ? AND template_code = ? AND status = ?", studentID, templateCode, types.TaskStatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// UpdateStatusIf applies updates only while the task still holds the expected
// status. Returns false when another writer got there first; the caller must
// treat that as a clean transition failure, never as a silent overwrite.
func (tr *taskRepo) UpdateStatusIf(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, expectedStatus string, updates map[string]any) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.RelationshipTask{}).
		Where("id = ? AND status = ?", taskID, expectedStatus).
		Updates(updates)
	if res.Error != nil {
		return false, mapWriteError(res.Error)
	}

	return res.RowsAffected > 0, nil
}
