package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/types"
)

type StudentRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, orgID, studentID uuid.UUID) (*types.Student, error)
	ListActiveByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.Student, error)
}

type studentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentRepo(db *gorm.DB, baseLog *logger.Logger) StudentRepo {
	return &studentRepo{db: db, log: baseLog.With("repo", "StudentRepo")}
}

func (sr *studentRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, studentID uuid.UUID) (*types.Student, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.Student
	if err := transaction.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, studentID).
		First(&result).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (sr *studentRepo) ListActiveByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.Student, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Student
	if err := transaction.WithContext(ctx).
		Where("organization_id = ? AND active = ?", orgID, true).
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}
