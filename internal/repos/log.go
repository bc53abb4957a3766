package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/types"
)

// LogRepo is append-only on purpose: the relationship log is the sole source
// of truth for undo eligibility and is never updated or deleted.
type LogRepo interface {
	Append(ctx context.Context, tx *gorm.DB, row *types.RelationshipLog) (*types.RelationshipLog, error)
	ListByTask(ctx context.Context, tx *gorm.DB, orgID, taskID uuid.UUID) ([]*types.RelationshipLog, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, orgID, studentID uuid.UUID) ([]*types.RelationshipLog, error)
}

type logRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLogRepo(db *gorm.DB, baseLog *logger.Logger) LogRepo {
	return &logRepo{db: db, log: baseLog.With("repo", "LogRepo")}
}

func (lr *logRepo) Append(ctx context.Context, tx *gorm.DB, row *types.RelationshipLog) (*types.RelationshipLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return nil, mapWriteError(err)
	}

	return row, nil
}

func (lr *logRepo) ListByTask(ctx context.Context, tx *gorm.DB, orgID, taskID uuid.UUID) ([]*types.RelationshipLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	var results []*types.RelationshipLog
	if err := transaction.WithContext(ctx).
		Where("organization_id = ? AND task_id = ?", orgID, taskID).
		Order("at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (lr *logRepo) ListByStudent(ctx context.Context, tx *gorm.DB, orgID, studentID uuid.UUID) ([]*types.RelationshipLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	var results []*types.RelationshipLog
	if err := transaction.WithContext(ctx).
		Where("organization_id = ? AND student_id = ?", orgID, studentID).
		Order("at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}
